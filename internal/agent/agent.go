// Package agent implements the reinforcement-learning prediction
// strategy. A small feed-forward value network maps a feature state to
// Q-values over a discrete action space of candidate number sets;
// epsilon-greedy episodes against recent history fill a bounded replay
// buffer, and scored past predictions feed back in as continual
// learning updates.
package agent

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"go.uber.org/zap"

	"github.com/lottostack/prediction-api/internal/config"
	"github.com/lottostack/prediction-api/internal/freq"
	"github.com/lottostack/prediction-api/internal/models"
	"github.com/lottostack/prediction-api/internal/predictor"
)

const (
	// historyWindow bounds how much history a snapshot loads.
	historyWindow = 1000
	// agentMinHistory is the minimum complete draws before the agent
	// trains at all.
	agentMinHistory = 20
	// replayCap bounds the replay buffer; oldest transitions are
	// evicted first.
	replayCap = 2000
	// batchSize is the replay minibatch size. Below it no fitting
	// happens.
	batchSize = 32
	// targetSyncEvery is the episode interval between target-network
	// resyncs.
	targetSyncEvery = 10

	// Continual learning bounds.
	learnMinRecords = 5
	learnTopRecords = 50
	blendAlpha      = 0.3
)

// OutcomeSource provides stored draw outcomes for a game.
type OutcomeSource interface {
	ListOutcomes(ctx context.Context, gameID string, limit, offset int, orderBy string) ([]models.DrawOutcome, error)
}

// Params holds the tunable hyperparameters.
type Params struct {
	EpsilonDecay float64
	EpsilonMin   float64
	LearningRate float64
	Episodes     int
}

// AccuracySample is one scored past prediction of the agent, as needed
// for a continual learning update.
type AccuracySample struct {
	Numbers        []int
	ErrorDistance  float64
	NumbersMatched int
}

type transition struct {
	state  []float64
	action int
	reward float64
}

// gameModel is the per-game trained state. The live network is the one
// fitted; the target copy serves greedy action selection and is
// resynchronized from the live network every targetSyncEvery episodes.
type gameModel struct {
	net     *deep.Neural
	target  *deep.Neural
	trainer *training.OnlineTrainer
	memory  []transition
	epsilon float64
	episode int
	trained bool
	rng     *rand.Rand

	// lastError is the most recent known error distance of this game's
	// scored predictions, fed into the state's error features. Negative
	// until the first continual learning pass.
	lastError float64
}

// Agent is the reinforcement-learning predictor. It satisfies the same
// contract as the statistical models and keeps one model per game.
type Agent struct {
	source   OutcomeSource
	analyzer *freq.Analyzer
	logger   *zap.SugaredLogger
	params   Params

	mu    sync.Mutex
	games map[string]*gameModel
}

// New builds an Agent with hyperparameters taken from configuration.
func New(source OutcomeSource, analyzer *freq.Analyzer, cfg *config.Config, logger *zap.Logger) *Agent {
	return &Agent{
		source:   source,
		analyzer: analyzer,
		logger:   logger.Sugar(),
		params: Params{
			EpsilonDecay: cfg.AgentEpsilonDecay,
			EpsilonMin:   cfg.AgentEpsilonMin,
			LearningRate: cfg.AgentLearningRate,
			Episodes:     cfg.AgentEpisodes,
		},
		games: make(map[string]*gameModel),
	}
}

func (a *Agent) Name() string { return predictor.ModelAgent }

// Predict trains the game's model on first use, then returns the greedy
// action's number set. Invalid outputs degrade to the frequency-ranked
// fallback, as with the other models.
func (a *Agent) Predict(ctx context.Context, game config.Game) ([]int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	gc, err := a.snapshot(ctx, game)
	if err != nil {
		return nil, err
	}
	if gc.historyLen() < agentMinHistory {
		return nil, &predictor.InsufficientDataError{
			Model: predictor.ModelAgent,
			Need:  agentMinHistory,
			Got:   gc.historyLen(),
		}
	}

	gm := a.model(game)
	if !gm.trained {
		if err := a.train(ctx, game, gm, gc); err != nil {
			return nil, err
		}
	}

	state := gc.buildState(gm.lastError)
	action := bestAction(gm.target.Predict(state))
	return finalizeNumbers(ctx, a.analyzer, game, decodeAction(action, game))
}

// LearnFromAccuracy replays the agent's own scored predictions as
// one-step updates. Fewer than learnMinRecords samples is a no-op; above
// learnTopRecords only the most accurate ones are used. The update nudges
// the currently preferred action's value toward the sample's reward,
// weighted by blendAlpha.
func (a *Agent) LearnFromAccuracy(ctx context.Context, game config.Game, samples []AccuracySample) error {
	if len(samples) < learnMinRecords {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	gc, err := a.snapshot(ctx, game)
	if err != nil {
		return err
	}

	// Samples arrive oldest first; the last one is the most recent
	// known error distance for later predict/train states.
	latestError := samples[len(samples)-1].ErrorDistance

	sort.Slice(samples, func(i, j int) bool {
		return samples[i].ErrorDistance < samples[j].ErrorDistance
	})
	if len(samples) > learnTopRecords {
		samples = samples[:learnTopRecords]
	}

	gm := a.model(game)
	examples := make(training.Examples, 0, len(samples))
	for _, s := range samples {
		if len(s.Numbers) != game.DrawSize {
			continue
		}
		state := gc.buildState(s.ErrorDistance)
		reward := gc.reward(s.Numbers, s.ErrorDistance, s.NumbersMatched)

		response := qCopy(gm.net.Predict(state))
		action := bestAction(response)
		response[action] = blendAlpha*reward + (1-blendAlpha)*response[action]
		examples = append(examples, training.Example{Input: state, Response: response})
	}
	if len(examples) == 0 {
		return nil
	}

	gm.trainer.Train(gm.net, examples, nil, 1)
	gm.target = deep.FromDump(gm.net.Dump())
	gm.trained = true
	gm.lastError = latestError

	a.logger.Infow("continual learning update applied",
		"game", game.ID,
		"samples", len(examples),
	)
	return nil
}

// model returns the per-game state, building the networks on first use.
func (a *Agent) model(game config.Game) *gameModel {
	gm, ok := a.games[game.ID]
	if ok {
		return gm
	}
	cfg := &deep.Config{
		Inputs:     StateSize(game),
		Layout:     []int{128, 64, actionSpaceSize},
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(0.5, 0),
		Bias:       true,
	}
	net := deep.NewNeural(cfg)
	gm = &gameModel{
		net:       net,
		target:    deep.FromDump(net.Dump()),
		trainer:   training.NewTrainer(training.NewAdam(a.params.LearningRate, 0, 0, 0), 0),
		epsilon:   1.0,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		lastError: -1,
	}
	a.games[game.ID] = gm
	return gm
}

// train runs the episode loop against the snapshot. Each episode picks
// an action epsilon-greedily against the target network, scores it
// against the most recent draw, and fits a replay minibatch once the
// buffer has enough transitions.
func (a *Agent) train(ctx context.Context, game config.Game, gm *gameModel, gc *gameContext) error {
	start := time.Now()
	for ep := 0; ep < a.params.Episodes; ep++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		state := gc.buildState(gm.lastError)
		var action int
		if gm.rng.Float64() < gm.epsilon {
			action = gm.rng.Intn(actionSpaceSize)
		} else {
			action = bestAction(gm.target.Predict(state))
		}
		candidate := decodeAction(action, game)
		gm.remember(transition{state: state, action: action, reward: gc.rewardAgainstRecent(candidate)})

		gm.replayStep()

		gm.episode++
		if gm.epsilon > a.params.EpsilonMin {
			gm.epsilon *= a.params.EpsilonDecay
			if gm.epsilon < a.params.EpsilonMin {
				gm.epsilon = a.params.EpsilonMin
			}
		}
		if gm.episode%targetSyncEvery == 0 {
			gm.target = deep.FromDump(gm.net.Dump())
		}
	}
	gm.target = deep.FromDump(gm.net.Dump())
	gm.trained = true

	a.logger.Infow("agent training finished",
		"game", game.ID,
		"episodes", a.params.Episodes,
		"epsilon", gm.epsilon,
		"duration", time.Since(start),
	)
	return nil
}

func (gm *gameModel) remember(t transition) {
	if len(gm.memory) >= replayCap {
		gm.memory = gm.memory[1:]
	}
	gm.memory = append(gm.memory, t)
}

// replayStep fits one minibatch sampled uniformly from the buffer. Each
// example keeps the live network's Q-values except at the taken action,
// which is set to the observed reward.
func (gm *gameModel) replayStep() {
	if len(gm.memory) < batchSize {
		return
	}
	examples := make(training.Examples, 0, batchSize)
	for _, idx := range gm.rng.Perm(len(gm.memory))[:batchSize] {
		t := gm.memory[idx]
		response := qCopy(gm.net.Predict(t.state))
		response[t.action] = t.reward
		examples = append(examples, training.Example{Input: t.state, Response: response})
	}
	gm.trainer.Train(gm.net, examples, nil, 1)
}

func qCopy(q []float64) []float64 {
	out := make([]float64, len(q))
	copy(out, q)
	return out
}

// finalizeNumbers validates a candidate against the game invariant,
// degrading to the frequency-ranked fallback on anything invalid.
func finalizeNumbers(ctx context.Context, analyzer *freq.Analyzer, game config.Game, nums []int) ([]int, error) {
	if err := models.ValidateNumbers(nums, game.MinNumber, game.MaxNumber, game.DrawSize); err == nil {
		sort.Ints(nums)
		return nums, nil
	}
	return analyzer.TopPick(ctx, game)
}
