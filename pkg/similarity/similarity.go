// Package similarity implements the user-facing orchestrator: tokenize ->
// minhash -> LSH insert/query/top-N, with optional true-Jaccard validation
// when document text is retained, and configuration persistence so a store
// can be reconstructed from its backend on reload.
package similarity

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/dupefind/dupefind/pkg/dferr"
	"github.com/dupefind/dupefind/pkg/logging"
	"github.com/dupefind/dupefind/pkg/lsh"
	"github.com/dupefind/dupefind/pkg/metrics"
	"github.com/dupefind/dupefind/pkg/minhash"
	"github.com/dupefind/dupefind/pkg/planner"
	"github.com/dupefind/dupefind/pkg/storage"
	"github.com/dupefind/dupefind/pkg/tokenize"
	"github.com/dupefind/dupefind/pkg/validation"
)

const component = "similarity"

// minhashSeed is the fixed PRNG seed used by every store's MinHasher.
// It is not part of the persisted settings (lsh_config only carries
// n_hashes/n_bands/rows_per_band), so reload must reconstruct identical
// fingerprints without reading a seed back from storage; fixing the seed
// store-wide, rather than making it caller-configurable, is what makes
// that reconstruction possible.
const minhashSeed uint32 = 42

const (
	settingStorageLevel = "storage_level"
	settingThreshold    = "similarity_threshold"
	settingTokenize     = "tokenize"
	settingLSHConfig    = "lsh_config"
)

// DefaultThreshold, DefaultMaxFN, and DefaultMaxFP are the defaults used
// when a caller constructs a Store with a zero-value Config.
const (
	DefaultThreshold = 0.75
	DefaultMaxFN     = 0.05
	DefaultMaxFP     = 0.05
	DefaultWordN     = 3
)

type lshConfigJSON struct {
	NHashes     int `json:"n_hashes"`
	NBands      int `json:"n_bands"`
	RowsPerBand int `json:"rows_per_band"`
}

// Config configures a freshly initialized Store. Zero-valued fields take
// the package defaults (word 3-grams, threshold 0.75, max_FN/max_FP 0.05,
// storage level Minimal).
type Config struct {
	Level              storage.Level
	Tokenizer          tokenize.Func
	TokenizeDescriptor string // "" with a nil Tokenizer selects the default word_ngrams(3); "" with a non-nil Tokenizer, or tokenize.CustomDescriptor, marks Tokenizer as caller-supplied.
	Threshold          float64
	MaxFN              float64
	MaxFP              float64

	// Logger receives the planner's warning, if any, when it cannot fully
	// satisfy the requested error bounds. Defaults to logging.Default().
	Logger *logging.Logger
}

func (c Config) withDefaults() Config {
	if c.Threshold == 0 {
		c.Threshold = DefaultThreshold
	}
	if c.MaxFN == 0 {
		c.MaxFN = DefaultMaxFN
	}
	if c.MaxFP == 0 {
		c.MaxFP = DefaultMaxFP
	}
	if c.Tokenizer == nil && c.TokenizeDescriptor == "" {
		c.TokenizeDescriptor = tokenize.WordNGramsDescriptor(DefaultWordN)
		c.Tokenizer = func(s string) map[string]struct{} { return tokenize.WordNGrams(s, DefaultWordN) }
	}
	if c.Level == 0 {
		c.Level = storage.Minimal
	}
	if c.Logger == nil {
		c.Logger = logging.Default()
	}
	return c
}

// Store is the similarity-store orchestrator: tokenizer + MinHasher + LSH
// index, plus its persisted settings.
type Store struct {
	backend   storage.Backend
	level     storage.Level
	tokenizer tokenize.Func
	threshold float64
	hasher    *minhash.MinHasher
	index     *lsh.Index
	logger    *logging.Logger
}

// New initializes a fresh Store against backend: it invokes the parameter
// planner, builds the MinHasher and LSH index, and persists the resulting
// settings. Returns a non-nil *planner.Warning if the planner could not
// fully satisfy the requested error bounds; this is never a fatal error.
func New(ctx context.Context, backend storage.Backend, cfg Config) (*Store, *planner.Warning, error) {
	cfg = cfg.withDefaults()
	if cfg.Tokenizer == nil {
		return nil, nil, dferr.New(dferr.InvalidInput, component, "New", errNoTokenizer)
	}
	if err := validation.ValidateStoreParams(validation.StoreParams{
		Threshold:  cfg.Threshold,
		MaxFN:      cfg.MaxFN,
		MaxFP:      cfg.MaxFP,
		Descriptor: cfg.TokenizeDescriptor,
	}); err != nil {
		return nil, nil, err
	}
	if err := validation.ValidatePlannerBounds(cfg.Threshold, cfg.MaxFN, cfg.MaxFP); err != nil {
		return nil, nil, err
	}

	plan, warn := planner.Solve(cfg.Threshold, cfg.MaxFN, cfg.MaxFP)
	metrics.RecordPlannerResolvedK(plan.K)
	if warn != nil {
		cfg.Logger.Warn("planner could not fully satisfy error bounds", "kind", warn.Kind.String(), "message", warn.Message, "k", plan.K)
		metrics.RecordPlannerWarning(warn.Kind.String())
	}
	// The planner's R is K/B rounded down, so B*R can fall short of K; the
	// index and MinHasher use exactly the B*R slots the bands cover.
	lshCfg, err := lsh.NewConfig(plan.B*plan.R, plan.B, plan.R)
	if err != nil {
		return nil, warn, err
	}

	if err := backend.Initialize(ctx); err != nil {
		return nil, warn, dferr.New(dferr.BackendError, component, "New", err)
	}

	descriptor := cfg.TokenizeDescriptor
	if descriptor == "" {
		descriptor = tokenize.CustomDescriptor
	}
	if err := persistSettings(ctx, backend, cfg.Level, cfg.Threshold, descriptor, lshCfg); err != nil {
		return nil, warn, err
	}

	hasher := minhash.New(lshCfg.K, minhashSeed)
	index := lsh.New(backend, cfg.Level, lshCfg)

	return &Store{
		backend:   backend,
		level:     cfg.Level,
		tokenizer: cfg.Tokenizer,
		threshold: cfg.Threshold,
		hasher:    hasher,
		index:     index,
		logger:    cfg.Logger,
	}, warn, nil
}

// opID returns a fresh correlation id for a single Insert/Query/TopN/Remove
// call, so its log lines can be grepped together.
func opID() string {
	return uuid.NewString()
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errNoTokenizer = storeError("no tokenizer configured")

func persistSettings(ctx context.Context, backend storage.Backend, level storage.Level, threshold float64, descriptor string, lshCfg lsh.Config) error {
	encodedLSH, err := json.Marshal(lshConfigJSON{NHashes: lshCfg.K, NBands: lshCfg.B, RowsPerBand: lshCfg.R})
	if err != nil {
		return dferr.New(dferr.Other, component, "New", err)
	}
	settings := map[string]string{
		settingStorageLevel: strconv.Itoa(int(level)),
		settingThreshold:    strconv.FormatFloat(threshold, 'g', -1, 64),
		settingTokenize:     descriptor,
		settingLSHConfig:    string(encodedLSH),
	}
	for k, v := range settings {
		if err := backend.PutSetting(ctx, k, v); err != nil {
			return dferr.New(dferr.BackendError, component, "New", err)
		}
	}
	return nil
}

// Reload reconstructs a Store from a backend's persisted settings. If the
// stored tokenizer descriptor is the custom sentinel, customTokenizer must
// be supplied; otherwise pass nil. Fails CorruptConfig if any required
// setting is missing or unparsable.
func Reload(ctx context.Context, backend storage.Backend, customTokenizer tokenize.Func) (*Store, error) {
	levelStr, ok, err := getSetting(ctx, backend, settingStorageLevel)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corruptConfig(settingStorageLevel)
	}
	levelInt, err := strconv.Atoi(levelStr)
	if err != nil {
		return nil, corruptConfig(settingStorageLevel)
	}

	thresholdStr, ok, err := getSetting(ctx, backend, settingThreshold)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corruptConfig(settingThreshold)
	}
	threshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil {
		return nil, corruptConfig(settingThreshold)
	}

	descriptor, ok, err := getSetting(ctx, backend, settingTokenize)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corruptConfig(settingTokenize)
	}

	var tokenizer tokenize.Func
	if descriptor == tokenize.CustomDescriptor {
		if customTokenizer == nil {
			return nil, dferr.New(dferr.InvalidInput, component, "Reload", errCustomTokenizerRequired)
		}
		tokenizer = customTokenizer
	} else {
		tokenizer, err = tokenize.Parse(descriptor)
		if err != nil {
			return nil, corruptConfig(settingTokenize)
		}
	}

	lshConfigStr, ok, err := getSetting(ctx, backend, settingLSHConfig)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, corruptConfig(settingLSHConfig)
	}
	var decoded lshConfigJSON
	if err := json.Unmarshal([]byte(lshConfigStr), &decoded); err != nil {
		return nil, corruptConfig(settingLSHConfig)
	}
	lshCfg, err := lsh.NewConfig(decoded.NHashes, decoded.NBands, decoded.RowsPerBand)
	if err != nil {
		return nil, corruptConfig(settingLSHConfig)
	}

	hasher := minhash.New(lshCfg.K, minhashSeed)
	index := lsh.New(backend, storage.Level(levelInt), lshCfg)

	return &Store{
		backend:   backend,
		level:     storage.Level(levelInt),
		tokenizer: tokenizer,
		threshold: threshold,
		hasher:    hasher,
		index:     index,
		logger:    logging.Default(),
	}, nil
}

func getSetting(ctx context.Context, backend storage.Backend, key string) (string, bool, error) {
	v, ok, err := backend.GetSetting(ctx, key)
	if err != nil {
		return "", false, dferr.New(dferr.BackendError, component, "Reload", err)
	}
	return v, ok, nil
}

type corruptConfigError string

func (e corruptConfigError) Error() string { return "missing or unparsable setting: " + string(e) }

func corruptConfig(key string) error {
	return dferr.New(dferr.CorruptConfig, component, "Reload", corruptConfigError(key))
}

const errCustomTokenizerRequired = storeError("a custom tokenizer was persisted; the caller must supply it again on reload")

// InsertOptions customizes a single Insert call.
type InsertOptions struct {
	ID        *uint64
	ExactPart *string
	Data      *string
}

// Insert tokenizes text, computes its fingerprint, and adds it to the LSH
// index, returning the assigned (or caller-supplied) id.
func (s *Store) Insert(ctx context.Context, text string, opts InsertOptions) (uint64, error) {
	start := time.Now()
	correlationID := opID()
	s.logger.Debug("insert", "op_id", correlationID, "text_len", len(text))
	tokens := s.tokenizer(text)
	fp := s.hasher.Compute(tokens)
	doc := storage.StoredDocument{
		Document:    &text,
		ExactPart:   opts.ExactPart,
		Fingerprint: fp,
		Data:        opts.Data,
	}
	idExternal := opts.ID != nil
	if idExternal {
		doc.ID = *opts.ID
	}
	id, err := s.index.Insert(ctx, doc, idExternal)
	metrics.RecordOpLatency("insert", err == nil, time.Since(start).Seconds())
	return id, err
}

// Result is a single similarity match. Jaccard is only populated when
// validation ran (Jaccard < 0 otherwise, so callers can tell the two cases
// apart).
type Result struct {
	ID        uint64
	Document  *string
	Data      *string
	ExactPart *string
	Jaccard   float64
}

// QueryOptions customizes a single Query or TopN call.
type QueryOptions struct {
	ExactPart      *string
	SkipValidation bool
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func samePart(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// validate re-tokenizes each candidate's stored document and computes true
// Jaccard similarity against queryTokens, filtering by exact_part match
// and the store's threshold, then sorts descending by (Jaccard, id).
func (s *Store) validate(docs []storage.StoredDocument, queryTokens map[string]struct{}, exactPart *string) []Result {
	results := make([]Result, 0, len(docs))
	for _, d := range docs {
		if !samePart(d.ExactPart, exactPart) {
			metrics.RecordValidationDropped("exact_part_mismatch")
			continue
		}
		if d.Document == nil {
			continue
		}
		candidateTokens := s.tokenizer(*d.Document)
		score := jaccard(queryTokens, candidateTokens)
		if score < s.threshold {
			metrics.RecordValidationDropped("below_threshold")
			continue
		}
		results = append(results, Result{
			ID:        d.ID,
			Document:  d.Document,
			Data:      d.Data,
			ExactPart: d.ExactPart,
			Jaccard:   score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Jaccard != results[j].Jaccard {
			return results[i].Jaccard > results[j].Jaccard
		}
		return results[i].ID < results[j].ID
	})
	return results
}

func toUnvalidatedResults(docs []storage.StoredDocument) []Result {
	results := make([]Result, len(docs))
	for i, d := range docs {
		results[i] = Result{ID: d.ID, Document: d.Document, Data: d.Data, ExactPart: d.ExactPart, Jaccard: -1}
	}
	return results
}

// Query tokenizes text, fingerprints it, and returns LSH candidates. When
// the storage level retains Document and validation is not skipped, each
// candidate is re-ranked by true Jaccard similarity against the query.
func (s *Store) Query(ctx context.Context, text string, opts QueryOptions) ([]Result, error) {
	start := time.Now()
	s.logger.Debug("query", "op_id", opID(), "text_len", len(text))
	tokens := s.tokenizer(text)
	fp := s.hasher.Compute(tokens)
	docs, err := s.index.Query(ctx, fp, opts.ExactPart)
	if err != nil {
		metrics.RecordOpLatency("query", false, time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordCandidatesReturned(len(docs))
	defer func() { metrics.RecordOpLatency("query", true, time.Since(start).Seconds()) }()
	if s.level.Has(storage.Document) && !opts.SkipValidation {
		return s.validate(docs, tokens, opts.ExactPart), nil
	}
	return toUnvalidatedResults(docs), nil
}

// TopN is like Query but returns at most n results ranked by LSH
// band-match count (or by true Jaccard when validation runs, in which case
// 4n candidates are requested up front to leave room for validation
// shrinkage before truncating to n).
func (s *Store) TopN(ctx context.Context, text string, n int, opts QueryOptions) ([]Result, error) {
	start := time.Now()
	if err := validation.ValidateTopN(n); err != nil {
		return nil, err
	}
	s.logger.Debug("top_n", "op_id", opID(), "text_len", len(text), "n", n)
	tokens := s.tokenizer(text)
	fp := s.hasher.Compute(tokens)

	validating := s.level.Has(storage.Document) && !opts.SkipValidation
	fetch := n
	if validating {
		fetch = 4 * n
	}

	docs, err := s.index.TopN(ctx, fp, opts.ExactPart, fetch)
	if err != nil {
		metrics.RecordOpLatency("top_n", false, time.Since(start).Seconds())
		return nil, err
	}
	metrics.RecordCandidatesReturned(len(docs))
	defer func() { metrics.RecordOpLatency("top_n", true, time.Since(start).Seconds()) }()

	if !validating {
		results := toUnvalidatedResults(docs)
		if len(results) > n {
			results = results[:n]
		}
		return results, nil
	}

	results := s.validate(docs, tokens, opts.ExactPart)
	if len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// Remove deletes a document by id. Fails InsufficientStorageLevel if the
// store's level does not retain Fingerprint.
func (s *Store) Remove(ctx context.Context, id uint64, requireExists bool) error {
	start := time.Now()
	s.logger.Debug("remove", "op_id", opID(), "id", id)
	if !s.level.Has(storage.Fingerprint) {
		metrics.RecordOpLatency("remove", false, time.Since(start).Seconds())
		return dferr.New(dferr.InsufficientStorageLevel, component, "Remove", errRemoveNeedsFingerprint)
	}
	err := s.index.Remove(ctx, id, requireExists)
	metrics.RecordOpLatency("remove", err == nil, time.Since(start).Seconds())
	return err
}

const errRemoveNeedsFingerprint = storeError("remove requires a storage level that retains Fingerprint")
