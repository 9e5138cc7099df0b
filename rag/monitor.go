package rag

import (
	"github.com/poiesic/ragask/ai"
	"github.com/poiesic/ragask/core"
)

// Stage identifies a step of answering a query.
type Stage int

const (
	StageStart Stage = iota
	StageEmbedded
	StageRetrieved
	StagePromptBuilt
	StageAnswered
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageEmbedded:
		return "embedded"
	case StageRetrieved:
		return "retrieved"
	case StagePromptBuilt:
		return "prompt-built"
	case StageAnswered:
		return "answered"
	default:
		return "unknown"
	}
}

// Monitor provides hooks to observe the answering process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterRetrieval(results []*core.SearchResult)
	AfterPromptBuilt(messages []ai.Message)
	Finish(answer string)
	// Failed reports the stage that could not be reached. Input validation
	// failures report StageStart.
	Failed(stage Stage, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                        {}
func (n *noopMonitor) AfterEmbedding(_ []float32)            {}
func (n *noopMonitor) AfterRetrieval(_ []*core.SearchResult) {}
func (n *noopMonitor) AfterPromptBuilt(_ []ai.Message)       {}
func (n *noopMonitor) Finish(_ string)                       {}
func (n *noopMonitor) Failed(_ Stage, _ error)               {}
