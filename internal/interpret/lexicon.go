package interpret

import (
	"sort"
	"strings"
)

// skillEntry maps a canonical skill name to the token sequences that
// identify it. Aliases are matched on the tokenized text, so multi-word
// aliases match across whitespace and punctuation.
type skillEntry struct {
	canonical string
	aliases   []string
}

// lexicon is the closed set of skills the interpreters recognize. Order
// matters only for tie-breaking; output order follows first appearance in
// the input text.
//
// Bare "go" and single letters are deliberately absent: they collide with
// ordinary prose ("ready to go", "plan c").
var lexicon = []skillEntry{
	// Languages
	{"python", []string{"python"}},
	{"java", []string{"java"}},
	{"javascript", []string{"javascript", "js"}},
	{"typescript", []string{"typescript", "ts"}},
	{"go", []string{"golang"}},
	{"rust", []string{"rust"}},
	{"ruby", []string{"ruby"}},
	{"php", []string{"php"}},
	{"c++", []string{"c++", "cpp"}},
	{"c#", []string{"c#", "csharp"}},
	{"scala", []string{"scala"}},
	{"kotlin", []string{"kotlin"}},
	{"swift", []string{"swift"}},
	{"perl", []string{"perl"}},
	{"bash", []string{"bash", "shell scripting"}},
	{"powershell", []string{"powershell"}},

	// Data stores and processing
	{"sql", []string{"sql"}},
	{"mysql", []string{"mysql"}},
	{"postgresql", []string{"postgresql", "postgres"}},
	{"sqlite", []string{"sqlite"}},
	{"mongodb", []string{"mongodb", "mongo"}},
	{"redis", []string{"redis"}},
	{"elasticsearch", []string{"elasticsearch"}},
	{"cassandra", []string{"cassandra"}},
	{"dynamodb", []string{"dynamodb"}},
	{"kafka", []string{"kafka", "apache kafka"}},
	{"rabbitmq", []string{"rabbitmq"}},
	{"spark", []string{"apache spark", "pyspark", "spark"}},
	{"hadoop", []string{"hadoop"}},
	{"airflow", []string{"airflow"}},
	{"snowflake", []string{"snowflake"}},
	{"bigquery", []string{"bigquery"}},
	{"etl", []string{"etl"}},

	// Cloud and infrastructure
	{"aws", []string{"aws", "amazon web services"}},
	{"gcp", []string{"gcp", "google cloud"}},
	{"azure", []string{"azure"}},
	{"docker", []string{"docker"}},
	{"kubernetes", []string{"kubernetes", "k8s"}},
	{"terraform", []string{"terraform"}},
	{"ansible", []string{"ansible"}},
	{"jenkins", []string{"jenkins"}},
	{"git", []string{"git"}},
	{"ci/cd", []string{"ci/cd", "continuous integration", "continuous delivery"}},
	{"linux", []string{"linux"}},
	{"nginx", []string{"nginx"}},
	{"grafana", []string{"grafana"}},
	{"prometheus", []string{"prometheus"}},
	{"devops", []string{"devops"}},

	// Frameworks and APIs
	{"react", []string{"react", "reactjs"}},
	{"angular", []string{"angular"}},
	{"vue", []string{"vue", "vuejs"}},
	{"django", []string{"django"}},
	{"flask", []string{"flask"}},
	{"fastapi", []string{"fastapi"}},
	{"spring", []string{"spring boot", "spring"}},
	{"rails", []string{"ruby on rails", "rails"}},
	{"laravel", []string{"laravel"}},
	{"express", []string{"express.js", "expressjs"}},
	{"node.js", []string{"node.js", "nodejs", "node"}},
	{"graphql", []string{"graphql"}},
	{"rest", []string{"rest api", "rest apis", "restful"}},
	{"grpc", []string{"grpc"}},
	{"html", []string{"html"}},
	{"css", []string{"css"}},

	// Machine learning and analytics
	{"machine learning", []string{"machine learning", "ml"}},
	{"deep learning", []string{"deep learning"}},
	{"tensorflow", []string{"tensorflow"}},
	{"pytorch", []string{"pytorch"}},
	{"scikit-learn", []string{"scikit-learn", "sklearn"}},
	{"pandas", []string{"pandas"}},
	{"numpy", []string{"numpy"}},
	{"nlp", []string{"nlp", "natural language processing"}},
	{"computer vision", []string{"computer vision"}},
	{"data analysis", []string{"data analysis"}},
	{"data science", []string{"data science"}},
	{"tableau", []string{"tableau"}},
	{"power bi", []string{"power bi"}},
	{"excel", []string{"excel"}},

	// Practices
	{"agile", []string{"agile"}},
	{"scrum", []string{"scrum"}},
	{"tdd", []string{"tdd", "test driven development"}},
	{"unit testing", []string{"unit testing", "unit tests"}},
	{"microservices", []string{"microservices"}},
	{"distributed systems", []string{"distributed systems"}},
	{"system design", []string{"system design"}},
	{"security", []string{"security"}},
	{"project management", []string{"project management"}},
	{"product management", []string{"product management"}},
	{"leadership", []string{"leadership"}},
	{"communication", []string{"communication"}},
	{"mentoring", []string{"mentoring", "mentorship"}},
	{"jira", []string{"jira"}},
}

// tokenize lowercases text and splits it into alphanumeric tokens.
// '+' '#' '/' '.' are kept inside tokens so "c++", "c#", "ci/cd" and
// "node.js" survive; leading/trailing punctuation is trimmed.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	isTokenRune := func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '+' || r == '#' || r == '/' || r == '.'
	}

	var tokens []string
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		tok := strings.Trim(current.String(), "./")
		if tok != "" {
			tokens = append(tokens, tok)
		}
		current.Reset()
	}

	for _, r := range lower {
		if isTokenRune(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// aliasTokens holds a tokenized alias with its canonical skill.
type aliasTokens struct {
	canonical string
	tokens    []string
	order     int // lexicon position, for deterministic tie-breaking
}

var compiledAliases = compileAliases()

func compileAliases() []aliasTokens {
	var out []aliasTokens
	for i, entry := range lexicon {
		for _, alias := range entry.aliases {
			toks := tokenize(alias)
			if len(toks) == 0 {
				continue
			}
			out = append(out, aliasTokens{canonical: entry.canonical, tokens: toks, order: i})
		}
	}
	return out
}

// ExtractSkills returns the canonical skills mentioned in text, ordered by
// first appearance. The same skill is reported once no matter how many
// aliases or repetitions occur.
func ExtractSkills(text string) []string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	// first token index where each canonical skill appears
	firstAt := make(map[string]int)
	orderOf := make(map[string]int)

	for _, alias := range compiledAliases {
		pos := findTokenSequence(tokens, alias.tokens)
		if pos < 0 {
			continue
		}
		if prev, seen := firstAt[alias.canonical]; !seen || pos < prev {
			firstAt[alias.canonical] = pos
			orderOf[alias.canonical] = alias.order
		}
	}

	if len(firstAt) == 0 {
		return nil
	}

	skills := make([]string, 0, len(firstAt))
	for skill := range firstAt {
		skills = append(skills, skill)
	}
	sort.Slice(skills, func(i, j int) bool {
		a, b := skills[i], skills[j]
		if firstAt[a] != firstAt[b] {
			return firstAt[a] < firstAt[b]
		}
		return orderOf[a] < orderOf[b]
	})
	return skills
}

// findTokenSequence returns the index of the first occurrence of seq in
// tokens, or -1.
func findTokenSequence(tokens, seq []string) int {
	if len(seq) == 0 || len(seq) > len(tokens) {
		return -1
	}
	for i := 0; i+len(seq) <= len(tokens); i++ {
		matched := true
		for j, want := range seq {
			if tokens[i+j] != want {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}

