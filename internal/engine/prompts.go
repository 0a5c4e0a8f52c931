package engine

// Fixed user-facing texts. Agent-specific greeting and fallback come from
// the agent's personality; these cover the cases where no agent text
// applies. Portuguese is the platform's reference locale.
const (
	msgNoAgent = "No momento não há atendentes virtuais disponíveis para este canal. Por favor, tente novamente mais tarde."

	msgTransferHuman = "Entendido! Vou transferir você para um de nossos atendentes. Aguarde um momento, por favor."

	msgApology = "Desculpe, ocorreu um erro ao processar sua mensagem. Por favor, tente novamente em instantes."

	msgCancelled = "Tudo bem, cancelei a solicitação. Se precisar de algo mais, é só chamar!"

	msgExecuted = "Pronto! Sua solicitação foi registrada com sucesso."

	msgExecutionFailed = "Não consegui concluir a sua solicitação agora. Podemos tentar novamente em alguns instantes."

	msgMenuPrompt = "Como posso ajudar? Escolha uma das opções abaixo ou descreva o que você precisa:"

	msgConfirmPrompt = "Posso confirmar os dados acima?"

	msgConfirmRetry = "Não entendi. Responda com uma das opções:"

	defaultGreeting = "Olá! Sou o assistente virtual."

	defaultFallback = "Desculpe, não entendi o que você precisa."
)

// confirmationMenu is the fixed yes/no/edit menu shown at the
// confirmation step. The numeric shortcuts match the locale classifiers.
func confirmationMenu() []MenuOption {
	return []MenuOption{
		{ID: "1", Text: "Sim, confirmar", Value: "confirm"},
		{ID: "2", Text: "Não, cancelar", Value: "cancel"},
		{ID: "3", Text: "Editar informações", Value: "edit"},
	}
}
