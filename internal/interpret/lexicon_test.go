package interpret

import (
	"reflect"
	"testing"
)

func TestExtractSkills(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "basic skills in first appearance order",
			text: "Experienced with Python and SQL on production systems.",
			want: []string{"python", "sql"},
		},
		{
			name: "order follows the text not the lexicon",
			text: "AWS infrastructure, then SQL reporting, then Python scripting.",
			want: []string{"aws", "sql", "python"},
		},
		{
			name: "aliases fold to canonical names",
			text: "Golang services deployed on k8s, backed by Postgres, with some JS tooling.",
			want: []string{"go", "kubernetes", "postgresql", "javascript"},
		},
		{
			name: "alias and canonical count once",
			text: "Kubernetes first, then more k8s work on kubernetes clusters.",
			want: []string{"kubernetes"},
		},
		{
			name: "case insensitive",
			text: "PYTHON and Sql and aWs.",
			want: []string{"python", "sql", "aws"},
		},
		{
			name: "multi word skill",
			text: "Built machine learning pipelines with Amazon Web Services.",
			want: []string{"machine learning", "aws"},
		},
		{
			name: "symbol heavy names",
			text: "Mostly C++ with some C# and Node.js on the side.",
			want: []string{"c++", "c#", "node.js"},
		},
		{
			name: "trailing punctuation stripped",
			text: "Skills: Python, SQL, AWS.",
			want: []string{"python", "sql", "aws"},
		},
		{
			name: "substring of a word does not match",
			text: "Enjoys sqlite trivia and pythonic prose analysis.",
			want: []string{"sqlite"},
		},
		{
			name: "no skills",
			text: "Enthusiastic self starter who enjoys hiking and chess.",
			want: nil,
		},
		{
			name: "empty text",
			text: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractSkills(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractSkills() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractSkillsDeterministic(t *testing.T) {
	text := "Python, Terraform, AWS, SQL, Docker, Kubernetes, Go via golang, React."
	first := ExtractSkills(text)
	for i := 0; i < 10; i++ {
		if got := ExtractSkills(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: ExtractSkills() = %v, want stable %v", i, got, first)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and splits on punctuation",
			text: "Python, SQL; AWS!",
			want: []string{"python", "sql", "aws"},
		},
		{
			name: "keeps symbol characters inside tokens",
			text: "C++ C# node.js ci/cd",
			want: []string{"c++", "c#", "node.js", "ci/cd"},
		},
		{
			name: "strips sentence periods",
			text: "ends with python.",
			want: []string{"ends", "with", "python"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize() = %v, want %v", got, tt.want)
			}
		})
	}
}
