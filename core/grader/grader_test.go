package grader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: " \t\n ", want: ""},
		{name: "punctuation only", input: "!?.,;", want: ""},
		{name: "lower & trim", input: "  Router  ", want: "router"},
		{name: "collapse whitespace", input: "Hello,   World!", want: "hello world"},
		{name: "no-break spaces", input: "hello  world", want: "hello world"},
		{name: "stripped symbol between words", input: "a - b", want: "a b"},
		{name: "ip address", input: "192.168.1.1", want: "19216811"},
		{name: "underscores kept", input: "Snake_Case", want: "snake_case"},
		{name: "non arabic letters stripped", input: "café", want: "caf"},
		{name: "alef variants", input: "أإآا", want: "اااا"},
		{name: "alef maqsura", input: "مستشفى", want: "مستشفي"},
		{name: "taa marbuta", input: "مدرسة", want: "مدرسه"},
		{name: "hamza on waw & yaa", input: "مؤتمر سائل", want: "موتمر ساول"},
		{name: "arabic digits kept", input: "١٢٣", want: "١٢٣"},
		{name: "arabic punctuation kept", input: "ما هو؟", want: "ما هو؟"},
		{name: "mixed", input: "  بروتوكول   DHCP!! ", want: "بروتوكول dhcp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestCheckAnswer(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		correct string
		want    bool
	}{
		// blank inputs
		{name: "empty user", user: "", correct: "router", want: false},
		{name: "empty correct", user: "router", correct: "", want: false},
		{name: "whitespace user", user: "  \t ", correct: "router", want: false},
		{name: "both whitespace", user: " ", correct: "  ", want: false},

		// exact
		{name: "case insensitive", user: "Router", correct: "router", want: true},
		{name: "arabic", user: "راوتر", correct: "راوتر", want: true},
		{name: "taa marbuta fold", user: "مدرسة", correct: "مدرسه", want: true},
		{name: "alef fold", user: "أمن الشبكات", correct: "امن الشبكات", want: true},
		{name: "punctuation ignored", user: "D.H.C.P", correct: "dhcp", want: true},
		{name: "punctuation only on both sides", user: "!!!", correct: "???", want: true},

		// containment
		{name: "short user answer below gate", user: "ok", correct: "ok please respond in detail", want: false},
		{name: "user answer contained", user: "192", correct: "the ip is 192.168.1.1", want: true},
		{name: "correct answer contained", user: "the ip is 192.168.1.1", correct: "192", want: true},
		{name: "short correct answer below gate", user: "the ip address", correct: "ip", want: false},
		{name: "short user answer below gate (reverse)", user: "ip", correct: "the ip address", want: false},

		// similarity
		{name: "reordered words", user: "network reliable fast link", correct: "fast reliable network link now", want: true},
		{name: "half the words", user: "fast reliable network", correct: "a fast and reliable network connection", want: false},
		{name: "repeated words each count", user: "ssh ssh ssh ssh", correct: "ssh telnet ftp http rdp", want: true},
		{name: "unrelated", user: "completely unrelated text", correct: "router", want: false},
		{name: "wrong protocol", user: "http", correct: "DHCP", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckAnswer(tt.user, tt.correct))
		})
	}
}

func TestPolicy_Evaluate(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		user      string
		correct   string
		wantStage Stage
		wantOk    bool
	}{
		{name: "blank", policy: DefaultPolicy, user: " ", correct: "dhcp", wantStage: StageEmpty},
		{name: "exact", policy: DefaultPolicy, user: "DHCP", correct: "dhcp", wantStage: StageExact, wantOk: true},
		{name: "containment", policy: DefaultPolicy, user: "firewall", correct: "a stateful firewall", wantStage: StageContainment, wantOk: true},
		{
			name: "similarity", policy: DefaultPolicy, user: "network reliable fast link", correct: "fast reliable network link now",
			wantStage: StageSimilarity, wantOk: true,
		},
		{name: "none", policy: DefaultPolicy, user: "http", correct: "dhcp", wantStage: StageNone},
		{
			name: "lower containment gate", policy: Policy{SimilarityThreshold: 0.8, MinContainmentLength: 2},
			user: "ok", correct: "ok please respond in detail", wantStage: StageContainment, wantOk: true,
		},
		{
			name: "lower similarity threshold", policy: Policy{SimilarityThreshold: 0.5, MinContainmentLength: 3},
			user: "fast reliable network", correct: "a fast and reliable network connection", wantStage: StageSimilarity, wantOk: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.policy.Evaluate(tt.user, tt.correct)
			assert.Equal(t, tt.wantStage, res.Stage)
			assert.Equal(t, tt.wantOk, res.Correct)
			assert.Equal(t, tt.wantOk, tt.policy.CheckAnswer(tt.user, tt.correct))
		})
	}

	res := DefaultPolicy.Evaluate(" Fast Reliable, Network ", "a fast and reliable network connection")
	assert.Equal(t, "fast reliable network", res.NormalizedUser)
	assert.Equal(t, "a fast and reliable network connection", res.NormalizedCorrect)
	assert.InDelta(t, 0.5, res.Similarity, 1e-9)
}

func TestCloseness(t *testing.T) {
	assert.Equal(t, 1.0, Closeness("DHCP", "dhcp"))
	assert.Equal(t, 0.0, Closeness("abc", "xyz"))
	assert.InDelta(t, 0.5, Closeness("abcd", "abxy"), 1e-9)
}
