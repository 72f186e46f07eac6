/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package prompt

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/Seednode/reveal/session"
)

// Pair is one question for each partner.
type Pair struct {
	A string `mapstructure:"a" json:"a"`
	B string `mapstructure:"b" json:"b"`
}

// Entry is everything a single die face can draw.
type Entry struct {
	Category  string `mapstructure:"category" json:"category"`
	Questions []Pair `mapstructure:"questions" json:"questions"`
}

type bankFile struct {
	Rolls map[string]Entry `mapstructure:"rolls"`
}

// Bank is a fixed question bank keyed by roll.
type Bank struct {
	entries map[int]Entry
}

// LoadBank reads a bank file in any format viper understands (yaml, json,
// toml). Roll keys must be quoted in yaml:
//
//	rolls:
//	  "1":
//	    category: Trust
//	    questions:
//	      - a: What would you never tell your partner?
//	        b: What do you think your partner hides from you?
func LoadBank(path string) (*Bank, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read question bank: %w", err)
	}

	var f bankFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("parse question bank: %w", err)
	}

	return newBank(f.Rolls)
}

func newBank(rolls map[string]Entry) (*Bank, error) {
	b := &Bank{entries: make(map[int]Entry, len(rolls))}

	for k, e := range rolls {
		roll, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil || roll < 1 || roll > session.DieSides {
			return nil, fmt.Errorf("question bank: roll %q must be 1-%d", k, session.DieSides)
		}

		var kept []Pair
		for _, q := range e.Questions {
			if strings.TrimSpace(q.A) == "" && strings.TrimSpace(q.B) == "" {
				continue
			}
			kept = append(kept, q)
		}
		if len(kept) == 0 {
			return nil, fmt.Errorf("question bank: roll %d has no questions", roll)
		}

		b.entries[roll] = Entry{Category: e.Category, Questions: kept}
	}

	return b, nil
}

// Rolls reports how many die faces have questions.
func (b *Bank) Rolls() int {
	return len(b.entries)
}

// Pick draws a question pair for roll uniformly at random.
func (b *Bank) Pick(roll int) (session.Prompt, bool) {
	e, ok := b.entries[roll]
	if !ok {
		return session.Prompt{}, false
	}

	i := 0
	if len(e.Questions) > 1 {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(e.Questions))))
		if err == nil {
			i = int(n.Int64())
		}
	}

	q := e.Questions[i]
	return session.Prompt{Category: e.Category, ForA: q.A, ForB: q.B}, true
}

// FetchPrompt implements session.PromptSource. Unknown rolls get Fallback.
func (b *Bank) FetchPrompt(_ context.Context, roll int) session.Prompt {
	p, ok := b.Pick(roll)
	if !ok {
		return Fallback()
	}
	return p
}

// DefaultBank is used when no bank file is configured.
func DefaultBank() *Bank {
	b, err := newBank(defaultRolls)
	if err != nil {
		panic("prompt: invalid built-in question bank: " + err.Error())
	}
	return b
}

var defaultRolls = map[string]Entry{
	"1": {Category: "Trust", Questions: []Pair{
		{A: "When did you first feel you could tell me anything?", B: "When do you think your partner first felt they could tell you anything?"},
		{A: "What is one thing you wish I asked you about more often?", B: "What do you think your partner wishes you asked about more often?"},
	}},
	"2": {Category: "Memories", Questions: []Pair{
		{A: "What is your favorite memory of us from the last year?", B: "What do you think is your partner's favorite memory of you from the last year?"},
		{A: "Which trip together would you repeat tomorrow?", B: "Which trip together do you think your partner would repeat tomorrow?"},
	}},
	"3": {Category: "Dreams", Questions: []Pair{
		{A: "If money were no object, where would we live?", B: "If money were no object, where would your partner want to live?"},
		{A: "What is a skill you secretly want to learn?", B: "What skill do you think your partner secretly wants to learn?"},
	}},
	"4": {Category: "Everyday", Questions: []Pair{
		{A: "What small habit of mine makes your day better?", B: "Which of your small habits does your partner love most?"},
		{A: "What is your ideal lazy Sunday?", B: "Describe your partner's ideal lazy Sunday."},
	}},
	"5": {Category: "Wildcard", Questions: []Pair{
		{A: "Which fictional character am I most like?", B: "Which fictional character does your partner think you are most like?"},
		{A: "What song should be the soundtrack of our relationship?", B: "What song would your partner pick as your soundtrack?"},
	}},
	"6": {Category: "Future", Questions: []Pair{
		{A: "What tradition do you want us to start?", B: "What tradition do you think your partner wants to start?"},
		{A: "Where do you see us in five years?", B: "Where does your partner see the two of you in five years?"},
	}},
}
