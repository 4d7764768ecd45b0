package questionnaire

func likert(labels ...string) []AnswerOption {
	opts := make([]AnswerOption, len(labels))
	for i, l := range labels {
		opts[i] = AnswerOption{Value: i + 1, Label: l}
	}
	return opts
}

// DefaultSections is the built-in quantum analysis questionnaire.
func DefaultSections() []Section {
	return []Section{
		{Category: Physical, Questions: []Question{
			{ID: "physical_1", Prompt: "Como você avalia sua energia física geral ultimamente?",
				Options: likert("Muito Baixa", "Baixa", "Moderada", "Alta", "Muito Alta")},
			{ID: "physical_2", Prompt: "Você tem sentido dores ou desconfortos físicos frequentes?",
				Options: likert("Sim, constantemente", "Sim, frequentemente", "Ocasionalmente", "Raramente", "Não")},
		}},
		{Category: Emotional, Questions: []Question{
			{ID: "emotional_1", Prompt: "Como está seu equilíbrio emocional?",
				Options: likert("Muito Instável", "Instável", "Neutro", "Estável", "Muito Estável")},
			{ID: "emotional_2", Prompt: "Com que frequência você se sente sobrecarregado(a) emocionalmente?",
				Options: likert("Sempre", "Frequentemente", "Às Vezes", "Raramente", "Nunca")},
		}},
		{Category: Mental, Questions: []Question{
			{ID: "mental_1", Prompt: "Como você descreveria sua clareza mental e foco?",
				Options: likert("Muito Ruim", "Ruim", "Regular", "Bom", "Excelente")},
			{ID: "mental_2", Prompt: "Você tem tido dificuldade de concentração ou memória?",
				Options: likert("Muita Dificuldade", "Alguma Dificuldade", "Pouca Dificuldade", "Quase Nenhuma", "Nenhuma Dificuldade")},
		}},
		{Category: Spiritual, Questions: []Question{
			{ID: "spiritual_1", Prompt: "Quão conectado(a) você se sente com seu propósito de vida?",
				Options: likert("Nada Conectado(a)", "Pouco Conectado(a)", "Moderadamente", "Conectado(a)", "Muito Conectado(a)")},
			{ID: "spiritual_2", Prompt: "Você tem dedicado tempo para práticas espirituais ou de autoconhecimento?",
				Options: likert("Não, Nenhuma", "Raramente", "Ocasionalmente", "Frequentemente", "Diariamente")},
		}},
		{Category: Energetic, Questions: []Question{
			{ID: "energetic_1", Prompt: "Você se sente energizado e vitalizado na maior parte do tempo?",
				Options: likert("Nunca", "Raramente", "Às vezes", "Frequentemente", "Sempre")},
			{ID: "energetic_2", Prompt: "Você se sente sensível a energias de ambientes ou pessoas?",
				Options: likert("Extremamente sensível", "Bastante sensível", "Moderadamente sensível", "Pouco sensível", "Nada sensível")},
		}},
	}
}

// Default returns the built-in catalog. It panics only if the built-in
// definition itself is broken.
func Default() *Catalog {
	c, err := New(DefaultSections())
	if err != nil {
		panic("questionnaire: invalid default catalog: " + err.Error())
	}
	return c
}
