package planner

import (
	"sync"
	"time"

	"github.com/ccsync/ccsync/pkg/computer"
	"github.com/ccsync/ccsync/pkg/logging"
	"github.com/ccsync/ccsync/pkg/rules"
	"github.com/ccsync/ccsync/pkg/save"
)

// Config is the subset of the configuration collaborator that
// planning needs: a normalized source root, save directory, the rule set,
// and computer groups.
type Config struct {
	SourceRoot        string
	MinecraftSavePath string
	ComputerGroups    map[string][]string
	Rules             []rules.SyncRule
}

// Planner orchestrates the save validator, computer discovery, rule
// resolver, and duplicate detector into SyncPlans, memoizing valid results.
type Planner struct {
	config Config
	logger *logging.Logger

	cache *Cache

	keyMu sync.Mutex
	keyLk map[string]*sync.Mutex
}

// New constructs a Planner over config, using ttl as the plan cache's
// soft expiry.
func New(config Config, logger *logging.Logger, ttl time.Duration) *Planner {
	return &Planner{
		config: config,
		logger: logger,
		cache:  NewCache(ttl),
		keyLk:  make(map[string]*sync.Mutex),
	}
}

// InvalidateCache clears the plan cache and the glob cache it shares.
func (p *Planner) InvalidateCache(reason string) {
	if reason != "" && p.logger != nil {
		p.logger.Debugf("invalidating plan cache: %s", reason)
	}
	p.cache.Invalidate()
}

// CreatePlan compute a cache key, short-circuit on a
// cache hit unless ForceRefresh is set, otherwise run validator →
// discovery → resolver → duplicate-detector and cache the result if valid.
// Concurrent calls sharing a cache key are serialized so planning work is
// never duplicated.
func (p *Planner) CreatePlan(opts Options) SyncPlan {
	key := cacheKey(opts.ChangedFiles)

	lock := p.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if !opts.ForceRefresh {
		if cached, ok := p.cache.Get(key); ok {
			if p.logger != nil {
				p.logger.Debugf("plan cache hit for key %q", key)
			}
			return cached
		}
	}
	if p.logger != nil {
		p.logger.Debugf("plan cache miss for key %q, resolving", key)
	}

	plan := p.resolve(opts.ChangedFiles)

	if plan.IsValid {
		p.cache.Put(key, plan)
	} else {
		p.cache.Invalidate()
	}

	return plan
}

func (p *Planner) lockFor(key string) *sync.Mutex {
	p.keyMu.Lock()
	defer p.keyMu.Unlock()
	lock, ok := p.keyLk[key]
	if !ok {
		lock = &sync.Mutex{}
		p.keyLk[key] = lock
	}
	return lock
}

func (p *Planner) resolve(changedFiles map[string]bool) SyncPlan {
	validation := save.Validate(p.config.MinecraftSavePath)
	var issues []rules.Issue
	for _, err := range validation.Errors {
		issues = append(issues, rules.Issue{
			Message:  err.Error(),
			Category: rules.CategorySaveDirectory,
			Severity: rules.SeverityError,
		})
	}
	for _, missing := range validation.MissingFiles {
		issues = append(issues, rules.Issue{
			Message:    missing + " was not found in the save directory",
			Category:   rules.CategorySaveDirectory,
			Severity:   rules.SeverityWarning,
			Suggestion: "this file is normally created by the game; it is safe to ignore before first launch",
		})
	}
	if !validation.IsValid {
		return SyncPlan{
			IsValid:   false,
			Issues:    issues,
			Timestamp: time.Now(),
		}
	}

	computers, err := computer.Find(validation.SavePath)
	if err != nil {
		issues = append(issues, rules.Issue{
			Message:  err.Error(),
			Category: rules.CategoryComputer,
			Severity: rules.SeverityError,
		})
		return SyncPlan{
			IsValid:   false,
			Issues:    issues,
			Timestamp: time.Now(),
		}
	}

	resolveResult := rules.Resolve(rules.Input{
		SourceRoot: p.config.SourceRoot,
		Rules:      p.config.Rules,
		Groups:     p.config.ComputerGroups,
		GlobCache:  p.cache.globCache,
	}, computers, changedFiles)

	issues = append(issues, resolveResult.Issues...)
	issues = append(issues, rules.DetectDuplicates(resolveResult.ResolvedFileRules)...)

	plan := SyncPlan{
		ResolvedFileRules:  resolveResult.ResolvedFileRules,
		AvailableComputers: resolveResult.AvailableComputers,
		MissingComputerIDs: resolveResult.MissingComputerIDs,
		Issues:             issues,
		Timestamp:          time.Now(),
	}
	plan.IsValid = !hasError(plan.Issues)

	return plan
}
