package skillmatch

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type skillCategory struct {
	Name  string
	Terms []string
}

// skillCategories is scanned in order; the order fixes the output order of
// lexical matches.
var skillCategories = []skillCategory{
	{Name: "languages", Terms: []string{
		"Python", "Java", "C++", "JavaScript", "TypeScript", "C#", "PHP", "Ruby", "Go", "Rust",
		"Kotlin", "Swift", "Objective-C", "R", "MATLAB", "Scala", "Groovy", "Clojure", "Elixir",
		"Haskell", "Lisp", "Lua", "Perl", "Shell", "Bash", "PowerShell", "VB.NET", "F#",
	}},
	{Name: "frameworks", Terms: []string{
		"Django", "Flask", "FastAPI", "Spring", "Spring Boot", "React", "Vue", "Angular", "Svelte",
		"Next.js", "Nuxt", "Express", "Fastify", "Laravel", "Symfony", "ASP.NET", "Struts",
		"Hibernate", "SQLAlchemy", "Sequelize", "Knex", "Jest", "Pytest", "JUnit", "RSpec",
		"Mocha", "Jasmine",
	}},
	{Name: "databases", Terms: []string{
		"MySQL", "PostgreSQL", "Oracle", "SQL Server", "MongoDB", "Redis", "Elasticsearch",
		"Cassandra", "DynamoDB", "Firebase", "SQLite", "MariaDB", "CouchDB", "Neo4j", "Memcached",
		"Hive", "Spark SQL", "BigQuery", "Snowflake",
	}},
	{Name: "cloud", Terms: []string{
		"AWS", "Azure", "Google Cloud", "GCP", "Heroku", "DigitalOcean", "Linode", "IBM Cloud",
		"Oracle Cloud", "Alibaba Cloud", "AWS Lambda", "Azure Functions", "Google Functions",
		"EC2", "S3", "RDS", "CloudFront", "Route 53",
	}},
	{Name: "devops", Terms: []string{
		"Docker", "Kubernetes", "Jenkins", "GitLab CI", "GitHub Actions", "CircleCI", "Travis CI",
		"Terraform", "Ansible", "Puppet", "Chef", "Vagrant", "CloudFormation", "Helm", "ArgoCD",
		"ECS", "EKS", "AKS",
	}},
	{Name: "version_control", Terms: []string{
		"Git", "GitHub", "GitLab", "Bitbucket", "SVN", "Mercurial", "Perforce",
	}},
	{Name: "methodology", Terms: []string{
		"Agile", "Scrum", "Kanban", "XP", "Waterfall", "CI/CD", "TDD", "BDD", "DDD", "Clean Code",
		"Design Patterns", "SOLID", "REST", "GraphQL",
	}},
	{Name: "microsoft", Terms: []string{
		".NET", "ASP.NET", "C#", "LINQ", "Entity Framework", "MS SQL", "Azure DevOps",
		"Visual Studio", "Windows Server", "Active Directory", "SharePoint", "Exchange", "Teams",
		"Office 365",
	}},
	{Name: "jvm", Terms: []string{
		"Java", "Scala", "Kotlin", "Groovy", "Clojure", "JVM",
	}},
	{Name: "mobile", Terms: []string{
		"Android", "iOS", "Swift", "Kotlin", "React Native", "Flutter", "Xamarin", "Ionic",
	}},
	{Name: "data", Terms: []string{
		"Pandas", "NumPy", "SciPy", "Scikit-learn", "TensorFlow", "PyTorch", "Keras",
		"Apache Spark", "Hadoop", "Hive", "Pig", "Tableau", "Power BI", "Looker", "Alteryx",
		"Data Science", "Machine Learning", "Deep Learning", "NLP", "Computer Vision",
	}},
	{Name: "qa", Terms: []string{
		"Selenium", "Cypress", "Postman", "JMeter", "LoadRunner", "SoapUI", "TestNG", "Cucumber",
		"Robot Framework", "Gherkin",
	}},
}

// spanClass is what a captured skill phrase may contain.
const spanClass = `([\p{L}\p{N}\s\-\+#]+?)`

const clauseEnd = `(?:[.,;]|\s+(?:e|and)\s+|$)`

var phrasePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d+\s*(?:anos?|meses|years?|months?)\s+(?:(?:de|of)\s+)?(?:experiência|experiencia|atuação|trabalho|experience)\s+(?:com|em|como|with|in|as)\s+` + spanClass + clauseEnd),
	regexp.MustCompile(`(?i)(?:proficiente|expertise|especialista|conhecimento profundo|domínio|proficient|expert|specialist|deep knowledge)\s+(?:em|de|com|in|with|of)\s+` + spanClass + clauseEnd),
	regexp.MustCompile(`(?i)(?:especialista|especialização|especializado|specialist|specialization|specialized)\s+(?:em|de|in)\s+` + spanClass + clauseEnd),
}

// CandidateExtractor pulls candidate skill terms out of free text.
type CandidateExtractor struct {
	categories []lexicalPattern
	phrases    []*regexp.Regexp
}

// lexicalPattern is one category alternation. Each term is its own capture
// group; guarded records which terms need a word boundary before them.
type lexicalPattern struct {
	re      *regexp.Regexp
	guarded []bool
}

// NewCandidateExtractor compiles the lexical category table.
func NewCandidateExtractor() *CandidateExtractor {
	e := &CandidateExtractor{phrases: phrasePatterns}
	for _, cat := range skillCategories {
		e.categories = append(e.categories, compileCategory(cat.Terms))
	}
	return e
}

// nonWord is a single character that cannot continue a word, accented
// letters included.
const nonWord = `[^\p{L}\p{N}_]`

// compileCategory builds a case-insensitive alternation. Boundaries are only
// required on edges that are word characters, so "C++" and ".NET" match.
func compileCategory(terms []string) lexicalPattern {
	alts := make([]string, len(terms))
	guarded := make([]bool, len(terms))
	for i, term := range terms {
		first, _ := utf8.DecodeRuneInString(term)
		last, _ := utf8.DecodeLastRuneInString(term)
		alt := "(" + regexp.QuoteMeta(term) + ")"
		if isWordRune(first) {
			alt = `(?:^|` + nonWord + `)` + alt
			guarded[i] = true
		}
		if isWordRune(last) {
			alt += `(?:$|` + nonWord + `)`
		}
		alts[i] = alt
	}
	return lexicalPattern{
		re:      regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`),
		guarded: guarded,
	}
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// findAll returns the matched terms in text order. The guards consume the
// separator around a term, so scanning resumes right after each term and a
// match anchored at the resume point is checked against the rune before it.
func (p lexicalPattern) findAll(text string) []string {
	var out []string
	for pos := 0; pos < len(text); {
		loc := p.re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		g := 1
		for loc[2*g] < 0 {
			g++
		}
		start, end := pos+loc[2*g], pos+loc[2*g+1]
		if p.guarded[g-1] && start == pos && pos > 0 {
			if prev, _ := utf8.DecodeLastRuneInString(text[:pos]); isWordRune(prev) {
				_, size := utf8.DecodeRuneInString(text[pos:])
				pos += size
				continue
			}
		}
		out = append(out, text[start:end])
		pos = end
	}
	return out
}

// Lexical returns every category match, category by category.
func (e *CandidateExtractor) Lexical(text string) []string {
	var out []string
	for _, p := range e.categories {
		out = append(out, p.findAll(text)...)
	}
	return out
}

// Phrases returns the spans following experience and expertise cues.
func (e *CandidateExtractor) Phrases(text string) []string {
	var out []string
	for _, re := range e.phrases {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			span := strings.TrimSpace(m[1])
			if acceptSpan(span) {
				out = append(out, span)
			}
		}
	}
	return out
}

func acceptSpan(span string) bool {
	n := utf8.RuneCountInString(span)
	return n > 3 && n < 80 && len(strings.Fields(span)) <= 4
}

// Extract unions both passes, dropping case-insensitive duplicates and
// keeping the first spelling seen.
func (e *CandidateExtractor) Extract(text string) []string {
	return dedupeFold(append(e.Lexical(text), e.Phrases(text)...))
}

func dedupeFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
