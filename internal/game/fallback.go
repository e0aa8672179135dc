// internal/game/fallback.go
package game

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultPlayerName stands in when a player has no usable display name.
const DefaultPlayerName = "Jogador"

const echoLimit = 80

// IntroNarrative opens every campaign.
const IntroNarrative = `A noite cai sobre a taverna "O Dragão Adormecido". O fogo crepita na lareira enquanto estranhos de todas as raças se agrupam em mesas de madeira. Um mensageiro entra, o capuz encharcado de chuva, e fixa o olhar em vocês.

— Há uma recompensa para quem levar esta carta até o castelo do norte. O caminho é perigoso. Quem se habilita?

Ele estende um envelope selado. O silêncio paira. Quem responde?`

// RefinementQuestions returns the clarifying questions asked before play.
func RefinementQuestions() []string {
	return []string{
		"Qual o tom predominante da campanha? (heroico, sombrio, humorístico)",
		"Há algum NPC recorrente que a IA deve conhecer?",
		"Alguma regra da casa que a IA deve respeitar além do sistema base?",
	}
}

// SimulatedNarrative is the deterministic narration used when no model is
// configured or the model call fails. It echoes up to 80 characters of the
// player's last input.
func SimulatedNarrative(lastContent, playerName string) string {
	if strings.TrimSpace(playerName) == "" {
		playerName = DefaultPlayerName
	}
	echo := lastContent
	if utf8.RuneCountInString(echo) > echoLimit {
		echo = string([]rune(echo)[:echoLimit]) + "…"
	}
	return fmt.Sprintf("A ação de %s reverbera na taverna. \"%s\": o Narrador considera as regras e o momento. "+
		"A cena se desenrola: algo muda no ambiente, e os olhares se voltam para o que vem a seguir. Quem age agora?",
		playerName, echo)
}
