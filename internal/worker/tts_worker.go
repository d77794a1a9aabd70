package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/agencyiq/agency-service/internal/config"
	"github.com/agencyiq/agency-service/internal/platform/objectstore"
	"github.com/agencyiq/agency-service/internal/repository"
)

// Synthesizer turns text into spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type speechKind string

const (
	kindTask      speechKind = "task"
	kindChallenge speechKind = "challenge"
)

type speechJob struct {
	kind speechKind
	id   string
	text string
}

// TTSWorker narrates training content in the background. Jobs are processed
// in bounded batches with a fixed pause in between, keeping within the TTS
// provider's concurrency limits.
type TTSWorker struct {
	synth      Synthesizer
	store      objectstore.Store
	onboarding repository.OnboardingRepository
	challenges repository.ChallengeRepository
	logger     *zap.Logger

	jobs       chan speechJob
	batchSize  int
	batchDelay time.Duration

	stopOnce sync.Once
	done     chan struct{}
}

// TTSDependencies bundles collaborators for the worker.
type TTSDependencies struct {
	Synthesizer    Synthesizer
	Store          objectstore.Store
	OnboardingRepo repository.OnboardingRepository
	ChallengeRepo  repository.ChallengeRepository
	Logger         *zap.Logger
}

// NewTTSWorker constructs the worker.
func NewTTSWorker(cfg config.ElevenLabsConfig, deps TTSDependencies) *TTSWorker {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 4
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TTSWorker{
		synth:      deps.Synthesizer,
		store:      deps.Store,
		onboarding: deps.OnboardingRepo,
		challenges: deps.ChallengeRepo,
		logger:     logger,
		jobs:       make(chan speechJob, 256),
		batchSize:  batchSize,
		batchDelay: time.Duration(cfg.BatchDelayMS) * time.Millisecond,
		done:       make(chan struct{}),
	}
}

// EnqueueTask queues narration for an onboarding task. A full queue drops
// the job; narration is best effort.
func (w *TTSWorker) EnqueueTask(taskID, text string) {
	w.enqueue(speechJob{kind: kindTask, id: taskID, text: text})
}

// EnqueueChallenge queues narration for a challenge.
func (w *TTSWorker) EnqueueChallenge(challengeID, text string) {
	w.enqueue(speechJob{kind: kindChallenge, id: challengeID, text: text})
}

func (w *TTSWorker) enqueue(job speechJob) {
	select {
	case w.jobs <- job:
	default:
		w.logger.Warn("tts queue full, dropping job",
			zap.String("kind", string(job.kind)),
			zap.String("id", job.id))
	}
}

// Start runs the batch loop until the context is cancelled or Stop is
// called.
func (w *TTSWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop drains nothing and shuts the loop down.
func (w *TTSWorker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *TTSWorker) run(ctx context.Context) {
	for {
		batch, ok := w.nextBatch(ctx)
		if !ok {
			return
		}

		var wg sync.WaitGroup
		for _, job := range batch {
			wg.Add(1)
			go func(job speechJob) {
				defer wg.Done()
				w.handle(ctx, job)
			}(job)
		}
		wg.Wait()

		if w.batchDelay > 0 {
			select {
			case <-time.After(w.batchDelay):
			case <-ctx.Done():
				return
			case <-w.done:
				return
			}
		}
	}
}

// nextBatch blocks for the first job, then greedily fills the batch with
// whatever is already queued.
func (w *TTSWorker) nextBatch(ctx context.Context) ([]speechJob, bool) {
	var batch []speechJob

	select {
	case job := <-w.jobs:
		batch = append(batch, job)
	case <-ctx.Done():
		return nil, false
	case <-w.done:
		return nil, false
	}

	for len(batch) < w.batchSize {
		select {
		case job := <-w.jobs:
			batch = append(batch, job)
		default:
			return batch, true
		}
	}
	return batch, true
}

func (w *TTSWorker) handle(ctx context.Context, job speechJob) {
	audio, err := w.synth.Synthesize(ctx, job.text)
	if err != nil {
		w.logger.Warn("tts synthesis failed",
			zap.String("kind", string(job.kind)),
			zap.String("id", job.id),
			zap.Error(err))
		return
	}

	key := fmt.Sprintf("tts/%s/%s.mp3", job.kind, job.id)
	if err := w.store.Put(ctx, key, "audio/mpeg", audio); err != nil {
		w.logger.Warn("tts upload failed", zap.String("key", key), zap.Error(err))
		return
	}

	url := w.store.URL(key)
	switch job.kind {
	case kindTask:
		err = w.onboarding.SetTaskAudio(ctx, job.id, url)
	case kindChallenge:
		err = w.challenges.SetAudio(ctx, job.id, url)
	}
	if err != nil {
		w.logger.Warn("tts url save failed",
			zap.String("kind", string(job.kind)),
			zap.String("id", job.id),
			zap.Error(err))
	}
}
