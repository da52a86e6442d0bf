package services

import (
	"fmt"
	"strings"

	"github.com/cisbeo/scorpius-rag/internal/core/domain"
)

// System instructions for the completion calls. All answers are produced
// in French for French public-procurement documents.
const (
	answerSystemPrompt = `Tu es un assistant expert en marchés publics français.
Tu réponds aux questions en te basant UNIQUEMENT sur le contexte fourni.

Règles importantes:
1. Cite toujours les sources pertinentes [Source N]
2. Si l'information n'est pas dans le contexte, dis-le clairement
3. Sois précis et factuel
4. Utilise un français professionnel
5. Structure ta réponse de manière claire`

	decomposeSystemPrompt = `Tu es un expert en analyse de questions complexes sur les marchés publics.
Décompose la question en sous-questions atomiques qui peuvent être répondues indépendamment.

Règles:
1. Chaque sous-question doit être simple et précise
2. Évite la redondance entre sous-questions
3. Maximum %d sous-questions
4. Réponds UNIQUEMENT avec les sous-questions, une par ligne, sans numérotation`

	synthesiseSystemPrompt = `Tu es un expert en synthèse d'informations sur les marchés publics.
Synthétise les réponses aux sous-questions pour répondre à la question principale.

Règles importantes:
1. Base-toi UNIQUEMENT sur les réponses aux sous-questions
2. Sois complet mais concis
3. Structure ta réponse de manière claire
4. Indique si certains aspects n'ont pas pu être répondus`
)

// noAnswerText is returned when retrieval finds nothing relevant.
const noAnswerText = "Je n'ai pas trouvé d'informations pertinentes dans les documents pour répondre à cette question."

// answerPrompt builds the user prompt for answer synthesis: the question
// plus the retrieved chunks tagged with source markers.
func answerPrompt(query string, chunks []domain.RetrievedChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nContexte disponible:\n", query)

	for i, rc := range chunks {
		fmt.Fprintf(&b, "[Source %d] (Pertinence: %.2f)\n", i+1, rc.Score)
		if rc.Chunk.SectionType != "" {
			fmt.Fprintf(&b, "Section: %s\n", rc.Chunk.SectionType)
		}
		if rc.Chunk.PageNumber > 0 {
			fmt.Fprintf(&b, "Page: %d\n", rc.Chunk.PageNumber)
		}
		b.WriteString(rc.Chunk.Text)
		b.WriteString("\n---\n")
	}

	b.WriteString("\nRéponds à la question en te basant uniquement sur le contexte fourni.\n")
	b.WriteString("Cite les sources entre crochets [Source N] pour chaque information importante.")
	return b.String()
}

// decomposePrompt builds the user prompt asking for sub-questions.
func decomposePrompt(query string) string {
	return fmt.Sprintf("Question complexe à décomposer:\n%s\n\nDécompose cette question en sous-questions atomiques.", query)
}

// synthesisePrompt builds the user prompt merging sub-answers into one
// final answer.
func synthesisePrompt(query string, subQuestions, subAnswers []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question principale: %s\n\nRéponses aux sous-questions:\n", query)
	for i := range subQuestions {
		fmt.Fprintf(&b, "\nSous-question %d: %s\nRéponse: %s\n", i+1, subQuestions[i], subAnswers[i])
	}
	b.WriteString("\nSynthétise ces informations pour répondre complètement à la question principale.")
	return b.String()
}

// parseSubQuestions extracts sub-questions from a completion response:
// one per non-empty line, list markers stripped, capped at max.
func parseSubQuestions(response string, max int) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == max {
			break
		}
	}
	return out
}
