// internal/catalog/catalog.go
package catalog

// QuestionType distinguishes how a question is presented and answered.
type QuestionType string

const (
	TypeText        QuestionType = "TEXT"
	TypeMultiChoice QuestionType = "MULTI_CHOICE"
	TypeThisOrThat  QuestionType = "THIS_OR_THAT"
	TypeScale       QuestionType = "SCALE"
)

// Question is a single immutable question descriptor.
type Question struct {
	ID      string       `json:"id"`
	Type    QuestionType `json:"type"`
	Prompt  string       `json:"prompt"`
	Options []string     `json:"options,omitempty"`
	Helper  string       `json:"helper,omitempty"`
	MaxLen  int          `json:"maxLen,omitempty"`
}

// Pack is a named, ordered set of exactly PackSize question ids.
type Pack struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	QuestionIDs []string `json:"questionIds"`
}

// PackSize is the number of questions every pack resolves to.
const PackSize = 10

// Packs returns all available packs in declaration order.
func Packs() []Pack {
	out := make([]Pack, len(packs))
	copy(out, packs)
	return out
}

// DefaultPack is the pack a freshly created lobby starts with.
func DefaultPack() Pack {
	return packs[0]
}

// PackByID returns the pack with the given id, or false if unknown.
func PackByID(id string) (Pack, bool) {
	for _, p := range packs {
		if p.ID == id {
			return p, true
		}
	}
	return Pack{}, false
}

// QuestionsForPack resolves a pack id to its ordered question descriptors.
// Returns false if the pack is unknown or does not resolve to exactly
// PackSize questions.
func QuestionsForPack(id string) ([]Question, bool) {
	p, ok := PackByID(id)
	if !ok {
		return nil, false
	}
	qs := make([]Question, 0, PackSize)
	for _, qid := range p.QuestionIDs {
		q, ok := questionByID(qid)
		if !ok {
			return nil, false
		}
		qs = append(qs, q)
	}
	if len(qs) != PackSize {
		return nil, false
	}
	return qs, true
}

func questionByID(id string) (Question, bool) {
	for _, q := range bank {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
