package locale

// Built-in classifiers. Registered at package load; new locales are added
// with Register, never by editing the engine.
func init() {
	Register("pt", wordSetClassifier(
		[]string{"sim", "s", "confirmar", "confirmo", "pode", "ok", "claro", "isso", "correto", "certo", "pode sim"},
		[]string{"não", "nao", "n", "cancelar", "cancela", "cancele", "desistir", "deixa pra lá", "deixa pra la"},
		[]string{"editar", "edita", "alterar", "altera", "mudar", "muda", "corrigir", "corrige", "trocar"},
	))

	Register("en", wordSetClassifier(
		[]string{"yes", "y", "confirm", "sure", "ok", "okay", "correct", "right", "go ahead"},
		[]string{"no", "n", "cancel", "stop", "abort", "never mind", "nevermind"},
		[]string{"edit", "change", "modify", "fix", "redo"},
	))
}
