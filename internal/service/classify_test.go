package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxlane/call-bridge-go/internal/model"
)

func userTurn(text string) model.Turn  { return model.Turn{Role: model.RoleUser, Text: text} }
func agentTurn(text string) model.Turn { return model.Turn{Role: model.RoleAgent, Text: text} }

func TestClassifyLead(t *testing.T) {
	tests := []struct {
		name  string
		turns []model.Turn
		want  model.LeadRating
	}{
		{
			name: "rejection beats interest",
			turns: []model.Turn{
				agentTurn("Hi, do you have a minute?"),
				userTurn("Sounds good, but actually I'm not interested."),
				agentTurn("Understood."),
				userTurn("Thanks."),
				agentTurn("Goodbye."),
			},
			want: model.LeadLost,
		},
		{
			name: "interest with sustained exchange is hot",
			turns: []model.Turn{
				agentTurn("Hi!"),
				userTurn("Tell me more about the pricing."),
				agentTurn("Sure, it starts at ten a month."),
				userTurn("Sounds great, how much for ten seats?"),
				agentTurn("Eighty a month."),
			},
			want: model.LeadHot,
		},
		{
			name: "interest on a short call is warm",
			turns: []model.Turn{
				agentTurn("Hi!"),
				userTurn("I'm interested, call me back tomorrow."),
			},
			want: model.LeadWarm,
		},
		{
			name: "very short call without signals is cold",
			turns: []model.Turn{
				agentTurn("Hello?"),
				userTurn("Hello, who is this?"),
			},
			want: model.LeadCold,
		},
		{
			name: "ordinary call without signals is warm",
			turns: []model.Turn{
				agentTurn("Hi!"),
				userTurn("Hi."),
				agentTurn("We sell widgets."),
				userTurn("Okay."),
			},
			want: model.LeadWarm,
		},
		{
			name: "korean rejection",
			turns: []model.Turn{
				agentTurn("안녕하세요!"),
				userTurn("관심 없어요."),
				agentTurn("알겠습니다."),
			},
			want: model.LeadLost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyLead(tt.turns))
		})
	}
}

func TestPhraseBoundaries(t *testing.T) {
	// "interested" inside "uninterested" must not count as interest.
	assert.False(t, ContainsInterest("we are uninterested"))
	assert.True(t, ContainsInterest("we are interested"))
	assert.True(t, ContainsInterest("Interested? Absolutely."))

	assert.True(t, ContainsRejection("No thanks!"))
	assert.False(t, ContainsRejection("she said casino thanks to luck"))
	assert.True(t, ContainsRejection("por ahora no me interesa"))

	assert.True(t, ContainsFarewell("Alright, goodbye now"))
	assert.False(t, ContainsFarewell("the goodbyes package"))
}
