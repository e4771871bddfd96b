package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mbergqvist/insynsapi/internal/config"
	"github.com/mbergqvist/insynsapi/internal/search"
	"github.com/mbergqvist/insynsapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

const (
	ingestLockKey     = "insynsapi:ingest:lock"
	ingestLockTTL     = 10 * time.Minute
	ingestRunTimeout  = 5 * time.Minute
	defaultIngestSpec = "15 6 * * *" // daily, pre-market
)

// CronService schedules the periodic feed ingestion runs
type CronService struct {
	cfg          *config.Config
	redisClient  *redis.Client
	c            *cron.Cron
	fetchService *FetchService
	tradeService *TradeService
	searchEngine *search.Engine
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, redisClient *redis.Client, fetchService *FetchService, tradeService *TradeService, searchEngine *search.Engine) *CronService {
	return &CronService{
		cfg:          cfg,
		redisClient:  redisClient,
		c:            cron.New(),
		fetchService: fetchService,
		tradeService: tradeService,
		searchEngine: searchEngine,
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	schedule := cs.cfg.IngestSchedule
	if schedule == "" {
		schedule = defaultIngestSpec
	}

	cs.addScheduledJob("Insider Trades INGEST Job", cs.ingestJob, schedule)
	cs.addStartupJob("Insider Trades INGEST Job", cs.ingestJob, 2*time.Second)

	cs.c.Start()
}

// Stop stops the cron service
func (cs *CronService) Stop() {
	cs.c.Stop()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

// addScheduledJob adds a scheduled job to the cron service
func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, func() {
		zaplogger.Info("STARTED SCHEDULED job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED SCHEDULED job", zaplogger.Fields{
			"job": name,
		})
	})
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED job", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job":      name,
		"schedule": schedule,
	})
}

// ingestJob fetches the disclosures published since yesterday and reconciles
// them into the store. A Redis lock serializes overlapping runs, concurrent
// runs over the same date window would race on duplicate detection.
func (cs *CronService) ingestJob() {
	runID := uuid.NewString()
	startedAt := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), ingestRunTimeout)
	defer cancel()

	locked, err := cs.redisClient.SetNX(ctx, ingestLockKey, runID, ingestLockTTL).Result()
	if err != nil {
		zaplogger.Error("failed to acquire ingest lock", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
		return
	}
	if !locked {
		zaplogger.Warn("ingest run already in progress, skipping", zaplogger.Fields{
			"runId": runID,
		})
		return
	}
	defer cs.releaseLock(runID)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	yesterday := today.AddDate(0, 0, -1)

	trades, err := cs.fetchService.FetchInsiderTrades(ctx, yesterday, today)
	if err != nil {
		zaplogger.Error("failed to fetch insider trades", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
		return
	}

	result, err := cs.tradeService.IngestTrades(ctx, trades)
	if err != nil {
		zaplogger.Error("failed to ingest insider trades", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
		return
	}

	zaplogger.Info(result.Message, zaplogger.Fields{
		"runId":   runID,
		"fetched": len(trades),
		"added":   result.Added,
		"removed": result.Removed,
	})
	cs.tradeService.LogIngestRun(runID, startedAt, result)
	cs.refreshSearchIndex(runID)
}

// releaseLock releases the ingest lock if this run still holds it
func (cs *CronService) releaseLock(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	holder, err := cs.redisClient.Get(ctx, ingestLockKey).Result()
	if err != nil || holder != runID {
		return
	}
	if err := cs.redisClient.Del(ctx, ingestLockKey).Err(); err != nil {
		zaplogger.Warn("failed to release ingest lock", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
	}
}

// refreshSearchIndex rebuilds the full-text index from the store
func (cs *CronService) refreshSearchIndex(runID string) {
	if cs.searchEngine == nil {
		return
	}
	trades, err := cs.tradeService.GetInsiderTrades()
	if err != nil {
		zaplogger.Error("failed to load trades for search index", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
		return
	}
	if err := cs.searchEngine.Rebuild(trades); err != nil {
		zaplogger.Error("failed to rebuild search index", zaplogger.Fields{
			"runId": runID,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("search index rebuilt", zaplogger.Fields{
		"runId":  runID,
		"trades": len(trades),
	})
}
