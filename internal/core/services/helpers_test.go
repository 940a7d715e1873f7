package services

import (
	"context"
	"testing"

	"github.com/jithsungh/wisebot/internal/adapters/driven/memory"
	"github.com/jithsungh/wisebot/internal/core/domain"
	"github.com/jithsungh/wisebot/internal/core/ports/driven"
	"github.com/jithsungh/wisebot/internal/core/ports/driven/mocks"
	"github.com/jithsungh/wisebot/internal/extractors"
	"github.com/jithsungh/wisebot/internal/normalisers"
	"github.com/jithsungh/wisebot/internal/postprocessors"
	"github.com/jithsungh/wisebot/internal/runtime"
)

// fixedFactory hands out prebuilt AI services.
type fixedFactory struct {
	embedding driven.EmbeddingService
	llm       driven.LLMService
}

func (f *fixedFactory) CreateEmbeddingService(*domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	return f.embedding, nil
}

func (f *fixedFactory) CreateLLMService(*domain.LLMSettings) (driven.LLMService, error) {
	return f.llm, nil
}

func readyServices(t *testing.T, emb driven.EmbeddingService, llm driven.LLMService) *runtime.Services {
	t.Helper()
	svcs := runtime.NewServices(domain.NewRuntimeConfig("memory", "memory", "memory"))
	err := svcs.Initialize(context.Background(), &fixedFactory{embedding: emb, llm: llm},
		&domain.EmbeddingSettings{}, &domain.LLMSettings{})
	if err != nil {
		t.Fatalf("initialize services: %v", err)
	}
	return svcs
}

// testEnv wires the ingestion and chat services over in-memory adapters.
type testEnv struct {
	emb       *mocks.MockEmbeddingService
	llm       *mocks.MockLLMService
	lock      *mocks.MockDistributedLock
	services  *runtime.Services
	store     *memory.KnowledgeStore
	jobs      *memory.JobStore
	queue     *memory.JobQueue
	convos    *memory.SessionStore
	ingestion *IngestionService
	retrieval *RetrievalService
	memory    *MemoryManager
	composer  *AnswerComposer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		emb:    mocks.NewMockEmbeddingService(),
		llm:    mocks.NewMockLLMService("mock answer"),
		lock:   mocks.NewMockDistributedLock(),
		store:  memory.NewKnowledgeStore(),
		jobs:   memory.NewJobStore(),
		queue:  memory.NewJobQueue(16),
		convos: memory.NewSessionStore(),
	}
	env.services = readyServices(t, env.emb, env.llm)

	env.ingestion = NewIngestionService(IngestionConfig{
		Services:   env.services,
		Store:      env.store,
		Jobs:       env.jobs,
		Queue:      env.queue,
		Extractors: extractors.DefaultRegistry(),
		Normaliser: normalisers.NewTextNormaliser(normalisers.DefaultOptions()),
		Pipeline:   postprocessors.DefaultPipeline(postprocessors.DefaultChunkConfig()),
		Lock:       env.lock,
	})
	env.retrieval = NewRetrievalService(RetrievalConfig{
		Services: env.services,
		Store:    env.store,
	})
	env.memory = NewMemoryManager(MemoryConfig{Store: env.convos, Window: 3})
	env.composer = NewAnswerComposer(ComposerConfig{
		Services:  env.services,
		Retrieval: env.retrieval,
		Memory:    env.memory,
	})
	return env
}

func (e *testEnv) count(t *testing.T) int {
	t.Helper()
	n, err := e.store.Count(context.Background(), domain.DefaultCollection)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
