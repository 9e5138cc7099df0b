package rag

import (
	"strings"

	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/core"
)

// DefaultSystemPrompt is the persona sent as the system message.
const DefaultSystemPrompt = "You are a web3 grandmaster with expert knowledge in Solidity and Rust for smart contract development. " +
	"You understand the inner workings of Ethereum Virtual Machines (EVMs) and are well-versed in multiple blockchain platforms, " +
	"including Ethereum, Solana, Polkadot, and Avalanche. " +
	"You are skilled in blockchain security, consensus mechanisms, DeFi, NFTs, and dApp development. " +
	"Your answers are precise, authoritative, and deeply informed by your expertise in these technologies. " +
	"Whenever you answer, you provide the source of knowledge of your answers, whether it's a link or an academic paper."

// contextSeparator terminates every context section.
const contextSeparator = "---\n"

// NormalizeQuery replaces every newline with a single space. The result is
// what gets embedded.
func NormalizeQuery(query string) string {
	return strings.ReplaceAll(query, "\n", " ")
}

// BuildContext concatenates the trimmed content of each result followed by
// "---\n", in retrieval order. Zero results yield an empty string.
func BuildContext(results []*core.SearchResult) string {
	var b strings.Builder
	for _, result := range results {
		if result == nil || result.Chunk == nil {
			continue
		}
		b.WriteString(strings.TrimSpace(result.Chunk.Content))
		b.WriteString(contextSeparator)
	}
	return b.String()
}

// UserPrompt embeds the context and the query into the user message template.
func UserPrompt(query, contextText string) string {
	return `Context sections: "` + contextText + `" Question: "` + query + `" Answer as simple text:`
}

// BuildPrompt returns the system and user messages, in that order.
func BuildPrompt(systemPrompt, query, contextText string) []ai.Message {
	return []ai.Message{
		ai.SystemMessage(systemPrompt),
		ai.UserMessage(UserPrompt(query, contextText)),
	}
}
