// internal/narrator/context.go
package narrator

import (
	"fmt"
	"strings"

	"github.com/jason-s-yu/taverna/internal/models"
)

var personaParts = []string{
	"Você é o Narrador de um RPG de mesa. Sua resposta deve ser APENAS um bloco de narração em português, sem meta-comentários.",
	"Faça: (1) Valide se a ação do jogador teve sucesso conforme as regras; (2) Descreva a consequência no mundo do jogo; (3) Avance a cena e direcione o foco para o próximo jogador ou para o grupo.",
	"Responda em um único parágrafo ou poucos parágrafos, no estilo narrativo.",
}

// BuildContext turns the room log into model instructions: one system message
// followed by one message per log entry, in log order. It is pure.
func BuildContext(messages []models.GameMessage, rulesAuthority string, roster []models.RosterEntry) []models.ContextMessage {
	names := make(map[string]string, len(roster))
	for _, r := range roster {
		names[r.UserID] = r.DisplayName
	}

	out := make([]models.ContextMessage, 0, len(messages)+1)
	out = append(out, models.ContextMessage{
		Role:    models.RoleSystem,
		Content: systemPrompt(rulesAuthority, roster),
	})

	for _, m := range messages {
		if m.IsAI() {
			out = append(out, models.ContextMessage{Role: models.RoleAssistant, Content: m.Content})
			continue
		}
		name, ok := names[m.From]
		if !ok {
			name = m.From
		}
		out = append(out, models.ContextMessage{
			Role:    models.RoleUser,
			Content: fmt.Sprintf("[%s] (%s): %s", name, KindLabel(m.Kind), m.Content),
		})
	}
	return out
}

func systemPrompt(rulesAuthority string, roster []models.RosterEntry) string {
	parts := append([]string(nil), personaParts...)
	if rules := strings.TrimSpace(rulesAuthority); rules != "" {
		parts = append(parts, "Autoridade de regras do sistema: "+rules)
	}
	seats := make([]string, 0, len(roster))
	for _, r := range roster {
		seats = append(seats, fmt.Sprintf("%s (id: %s)", r.DisplayName, r.UserID))
	}
	parts = append(parts, "Jogadores na mesa: "+strings.Join(seats, ", ")+".")
	return strings.Join(parts, "\n\n")
}

// KindLabel is the label a player message carries in the model transcript.
func KindLabel(kind models.MessageKind) string {
	switch kind {
	case models.KindAction:
		return "Ação"
	case models.KindConsult:
		return "Consulta (fora do personagem)"
	case models.KindInteract:
		return "Interação com NPC"
	default:
		return "Mensagem"
	}
}

// TailLimit keeps the last n messages. n <= 0 keeps everything.
func TailLimit(messages []models.GameMessage, n int) []models.GameMessage {
	if n <= 0 || len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
