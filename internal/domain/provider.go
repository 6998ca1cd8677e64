package domain

import (
	"fmt"
	"strings"
)

// Provider names a backend for the embedding or generation capability.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
	ProviderGroq   Provider = "groq"
	ProviderGemini Provider = "gemini"
)

// ParseProvider maps a configured name to a Provider. Unknown names are an
// error rather than a silent fallback.
func ParseProvider(name string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	switch p {
	case ProviderOpenAI, ProviderOllama, ProviderGroq, ProviderGemini:
		return p, nil
	}
	return "", NewDomainErrorWithCause(ErrCodeValidation, ErrUnsupportedProvider.Message,
		fmt.Errorf("%q (want openai, ollama, groq or gemini)", name))
}

// SupportsEmbeddings reports whether the provider exposes an embeddings API.
// Groq serves chat completions only.
func (p Provider) SupportsEmbeddings() bool {
	return p != ProviderGroq
}
