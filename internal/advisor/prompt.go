package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vbonduro/skintell/internal/capture"
	"github.com/vbonduro/skintell/internal/domain"
)

var ErrIncompleteQuestionnaire = errors.New("questionnaire requires age range and skin type")

const chatPersona = "You are SkinTell AI, a friendly skincare advisor."

const chatImageInstruction = `For skin images, reply in ~150-180 words:
- Skin Type: 1 sentence.
- Concerns: 3-4 bullets.
- Routine: Morning & evening, 2-3 steps each (short).
- Products: 2-3 bullets with key ingredients.
- Lifestyle: 1 tip.
Use simple words, bullet points. If image is unclear, say so and suggest dermatologist.`

const chatTextInstruction = "For text questions, answer in 2-3 short sentences. Be direct and simple."

const chatClosing = `Keep supportive, professional. End with: "Ask if you need details!"`

// ScanInstruction is the analysis request sent with every scan photo.
const ScanInstruction = "Analyze this facial image for skincare assessment. Provide specific " +
	"recommendations for: 1) Skin type identification 2) Visible concerns (acne, wrinkles, " +
	"dark spots, etc.) 3) Personalized skincare routine recommendations 4) Product suggestions " +
	"5) Lifestyle tips. Be encouraging and professional. Format the response in a clear, " +
	"easy-to-read manner."

// ImageContextLead introduces the inline image in chat prompts.
const ImageContextLead = "Here is my skin image for context:"

// ImageResolver turns an image reference (data URI or stored photo URL) into
// inline bytes.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) (capture.Image, error)
}

// BuildChatPrompt assembles a chat request. imageRef may be empty. Callers
// reject blank text before getting here.
func BuildChatPrompt(ctx context.Context, text, imageRef string, resolver ImageResolver) (Prompt, error) {
	p := Prompt{
		Config: GenerationConfig{Temperature: 0.4, MaxOutputTokens: 120},
	}

	if imageRef == "" {
		p.System = chatSystemPrompt(chatTextInstruction)
		p.Parts = []Part{{Text: text}}
		return p, nil
	}

	if resolver == nil {
		return Prompt{}, fmt.Errorf("no resolver for image reference")
	}
	img, err := resolver.Resolve(ctx, imageRef)
	if err != nil {
		return Prompt{}, fmt.Errorf("failed to resolve image context: %w", err)
	}

	p.System = chatSystemPrompt(chatImageInstruction)
	p.Config.MaxOutputTokens = 180
	p.Parts = []Part{
		{Text: ImageContextLead},
		{Image: &img},
		{Text: text},
	}
	return p, nil
}

func chatSystemPrompt(instruction string) string {
	return strings.Join([]string{chatPersona, instruction, chatClosing}, "\n\n")
}

// BuildScanPrompt assembles the analysis request for a freshly captured photo.
func BuildScanPrompt(img capture.Image, answers *domain.Questionnaire) (Prompt, error) {
	parts := []Part{{Text: ScanInstruction}}

	if answers != nil {
		if strings.TrimSpace(answers.AgeRange) == "" || strings.TrimSpace(answers.SkinType) == "" {
			return Prompt{}, ErrIncompleteQuestionnaire
		}
		parts = append(parts, Part{Text: questionnaireText(answers)})
	}

	parts = append(parts, Part{Image: &img})
	return Prompt{
		Parts: parts,
		Config: GenerationConfig{
			Temperature:     0.4,
			TopK:            32,
			TopP:            1,
			MaxOutputTokens: 1000,
		},
	}, nil
}

func questionnaireText(q *domain.Questionnaire) string {
	var b strings.Builder
	b.WriteString("About me:")
	writeAnswer(&b, "Age range", q.AgeRange)
	writeAnswer(&b, "Self-reported skin type", q.SkinType)
	writeAnswer(&b, "Main concerns", q.Concerns)
	writeAnswer(&b, "Current routine", q.CurrentRoutine)
	writeAnswer(&b, "Lifestyle", q.Lifestyle)
	b.WriteString("\nTake these answers into account in your recommendations.")
	return b.String()
}

func writeAnswer(b *strings.Builder, label, value string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return
	}
	fmt.Fprintf(b, "\n- %s: %s", label, value)
}
