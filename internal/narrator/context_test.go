// internal/narrator/context_test.go
package narrator

import (
	"strings"
	"testing"

	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var roster = []models.RosterEntry{
	{UserID: "alice", DisplayName: "Alice"},
	{UserID: "bob", DisplayName: "Bob"},
}

func sampleLog() []models.GameMessage {
	return []models.GameMessage{
		{ID: "1", From: models.FromAI, Kind: models.KindNarrative, Content: "Intro"},
		{ID: "2", From: "alice", Kind: models.KindAction, Content: "I draw my sword"},
		{ID: "3", From: "alice", Kind: models.KindConsult, Content: "Is it a free action?"},
		{ID: "4", From: "bob", Kind: models.KindInteract, Content: "Hello innkeeper"},
		{ID: "5", From: "ghost", Kind: models.KindRefinement, Content: "boo"},
	}
}

func TestBuildContextShape(t *testing.T) {
	log := sampleLog()
	ctx := BuildContext(log, "D&D 5e", roster)

	require.Len(t, ctx, 1+len(log))
	assert.Equal(t, models.RoleSystem, ctx[0].Role)
	for _, m := range ctx[1:] {
		assert.NotEqual(t, models.RoleSystem, m.Role)
	}

	assert.Equal(t, models.ContextMessage{Role: models.RoleAssistant, Content: "Intro"}, ctx[1])
	assert.Equal(t, "[Alice] (Ação): I draw my sword", ctx[2].Content)
	assert.Equal(t, "[Alice] (Consulta (fora do personagem)): Is it a free action?", ctx[3].Content)
	assert.Equal(t, "[Bob] (Interação com NPC): Hello innkeeper", ctx[4].Content)
	assert.Equal(t, "[ghost] (Mensagem): boo", ctx[5].Content, "unknown sender falls back to the raw id")
	assert.Equal(t, models.RoleUser, ctx[5].Role)
}

func TestBuildContextSystemPrompt(t *testing.T) {
	sys := BuildContext(nil, "  D&D 5e  ", roster)[0].Content
	assert.True(t, strings.HasPrefix(sys, "Você é o Narrador de um RPG de mesa."))
	assert.Contains(t, sys, "\n\nAutoridade de regras do sistema: D&D 5e\n\n")
	assert.True(t, strings.HasSuffix(sys, "Jogadores na mesa: Alice (id: alice), Bob (id: bob)."))

	noRules := BuildContext(nil, "   ", roster)[0].Content
	assert.NotContains(t, noRules, "Autoridade de regras")
}

func TestBuildContextIsPure(t *testing.T) {
	log := sampleLog()
	first := BuildContext(log, "rules", roster)
	second := BuildContext(log, "rules", roster)
	assert.Equal(t, first, second)
	assert.Equal(t, sampleLog(), log, "input is not modified")
}

func TestTailLimit(t *testing.T) {
	log := sampleLog()
	assert.Len(t, TailLimit(log, 0), 5)
	assert.Len(t, TailLimit(log, 10), 5)
	tail := TailLimit(log, 2)
	require.Len(t, tail, 2)
	assert.Equal(t, "4", tail[0].ID)
}
