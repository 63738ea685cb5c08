// Package engine implements the reconciliation and federated search
// operations over the canonical and overlay stores.
//
// The engine is stateless between calls. All shared state lives in the two
// stores, and the canonical store's conditional create is the only
// serialization point for concurrent writers.
package engine

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/louisbranch/indexshell/internal/catalog/annotate"
	"github.com/louisbranch/indexshell/internal/catalog/normalize"
	"github.com/louisbranch/indexshell/internal/catalog/overlay"
	"github.com/louisbranch/indexshell/internal/catalog/storage"
	"github.com/louisbranch/indexshell/internal/platform/errors"
	"github.com/louisbranch/indexshell/internal/platform/id"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "indexshell/engine"

// Engine reconciles submitted commands into the canonical catalog and the
// caller's overlay catalog, and searches across both.
type Engine struct {
	canonicals storage.CanonicalStore
	overlays   storage.OverlayStore
	annotator  annotate.Annotator
	tracer     trace.Tracer
	now        func() time.Time
}

// New creates an engine over the given stores and annotator.
func New(canonicals storage.CanonicalStore, overlays storage.OverlayStore, annotator annotate.Annotator) *Engine {
	return &Engine{
		canonicals: canonicals,
		overlays:   overlays,
		annotator:  annotator,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
}

// SubmitResult reports the outcome of a submission: the shared snippet ID,
// the caller's overlay entry after the merge, and whether either record was
// created by this call.
type SubmitResult struct {
	SnippetID        string
	Entry            storage.OverlayEntry
	CanonicalCreated bool
	OverlayCreated   bool
}

// Submit reconciles rawCommand into the catalogs for identity.
//
// A miss on the canonical catalog invokes the annotator and conditionally
// creates the canonical record keyed by the normalized formatted command; a
// create race adopts the winning record and discards the local annotation.
// An annotator failure fails the submission with no canonical write, so a
// low-quality record is never published to the shared catalog. Custom tags
// keep their input order ahead of canonical tags, and tags already in the
// caller's overlay entry keep their position ahead of anything merged in.
func (e *Engine) Submit(ctx context.Context, identity, rawCommand string, customTags []string, customSummary string) (SubmitResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Submit")
	defer span.End()

	if strings.TrimSpace(identity) == "" {
		return SubmitResult{}, errors.New(errors.CodeIdentityMissing, "identity is required")
	}
	key := normalize.Key(rawCommand)
	if key == "" {
		return SubmitResult{}, errors.New(errors.CodeValidationCommandEmpty, "command text is required")
	}
	span.SetAttributes(attribute.String("catalog.identity", identity))

	snippet, canonicalCreated, err := e.resolveCanonical(ctx, key, rawCommand)
	if err != nil {
		return SubmitResult{}, err
	}
	span.SetAttributes(
		attribute.String("snippet.id", snippet.SnippetID),
		attribute.Bool("snippet.created", canonicalCreated),
	)

	effectiveTags := overlay.OrderedUnion(customTags, snippet.Tags)

	catalog, err := e.loadCatalog(ctx, identity)
	if err != nil {
		return SubmitResult{}, err
	}

	overlayCreated := false
	entry := catalog.EntryBySnippetID(snippet.SnippetID)
	if entry != nil {
		// Only an explicit custom summary may replace the entry's summary;
		// falling back to the canonical one here would clobber a prior
		// customization on re-submission.
		entry.Tags, entry.Summary = overlay.Merge(entry.Tags, effectiveTags, entry.Summary, customSummary)
		entry.CommandText = snippet.CommandText
	} else {
		summary := customSummary
		if summary == "" {
			summary = snippet.Summary
		}
		catalog.Entries = append(catalog.Entries, storage.OverlayEntry{
			SnippetID:   snippet.SnippetID,
			CommandText: snippet.CommandText,
			Tags:        effectiveTags,
			Summary:     summary,
		})
		entry = &catalog.Entries[len(catalog.Entries)-1]
		overlayCreated = true
	}

	if err := e.overlays.PutCatalog(ctx, catalog); err != nil {
		if stderrors.Is(err, storage.ErrVersionConflict) {
			return SubmitResult{}, errors.Wrap(errors.CodeStorageVersionConflict, "write overlay catalog", err)
		}
		return SubmitResult{}, errors.Wrap(errors.CodeStorageUnavailable, "write overlay catalog", err)
	}

	return SubmitResult{
		SnippetID:        snippet.SnippetID,
		Entry:            copyEntry(*entry),
		CanonicalCreated: canonicalCreated,
		OverlayCreated:   overlayCreated,
	}, nil
}

// resolveCanonical returns the canonical snippet for key, annotating and
// conditionally creating it on a miss. A losing conditional create adopts
// the winner; the race is an expected branch, not an error.
func (e *Engine) resolveCanonical(ctx context.Context, key, rawCommand string) (storage.CanonicalSnippet, bool, error) {
	snippet, err := e.canonicals.GetByNormalizedCommand(ctx, key)
	if err == nil {
		return snippet, false, nil
	}
	if !stderrors.Is(err, storage.ErrNotFound) {
		return storage.CanonicalSnippet{}, false, errors.Wrap(errors.CodeStorageUnavailable, "look up canonical snippet", err)
	}

	annotation, err := e.annotator.Annotate(ctx, rawCommand)
	if err != nil {
		if stderrors.Is(err, annotate.ErrNotACommand) {
			return storage.CanonicalSnippet{}, false, errors.Wrap(errors.CodeAnnotationRejected, "input not recognized as a command", err)
		}
		return storage.CanonicalSnippet{}, false, errors.Wrap(errors.CodeAnnotationFailed, "annotate command", err)
	}

	snippetID, err := id.NewID()
	if err != nil {
		return storage.CanonicalSnippet{}, false, errors.Wrap(errors.CodeStorageUnavailable, "generate snippet id", err)
	}
	candidate := storage.CanonicalSnippet{
		SnippetID:   snippetID,
		CommandText: annotation.CommandText,
		Tags:        annotation.Tags,
		Summary:     annotation.Summary,
		CreatedAt:   e.now().UTC(),
	}
	created, winner, err := e.canonicals.CreateIfAbsent(ctx, normalize.Key(annotation.CommandText), candidate)
	if err != nil {
		return storage.CanonicalSnippet{}, false, errors.Wrap(errors.CodeStorageUnavailable, "create canonical snippet", err)
	}
	return winner, created, nil
}

// Search returns the caller's merged view of snippets matching rawQuery.
//
// Overlay entries match when any whitespace-separated query term is a
// case-sensitive substring of the command text, the summary, or any tag.
// Canonical snippets match on exact tag equality only, since canonical tags
// are curated. Overlay matches take precedence by snippet ID; canonical
// matches fill in the rest in store order. An empty result is not an error.
func (e *Engine) Search(ctx context.Context, identity, rawQuery string) ([]storage.OverlayEntry, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Search")
	defer span.End()

	if strings.TrimSpace(identity) == "" {
		return nil, errors.New(errors.CodeIdentityMissing, "identity is required")
	}
	terms := normalize.Terms(rawQuery)
	if len(terms) == 0 {
		return nil, errors.New(errors.CodeValidationQueryEmpty, "search query is required")
	}
	span.SetAttributes(
		attribute.String("catalog.identity", identity),
		attribute.Int("query.terms", len(terms)),
	)

	catalog, err := e.loadCatalog(ctx, identity)
	if err != nil {
		return nil, err
	}

	results := make([]storage.OverlayEntry, 0, len(catalog.Entries))
	seen := make(map[string]struct{})
	for _, entry := range catalog.Entries {
		if !entryMatches(entry, terms) {
			continue
		}
		seen[entry.SnippetID] = struct{}{}
		results = append(results, copyEntry(entry))
	}

	snippets, err := e.canonicals.SearchByTag(ctx, terms)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorageUnavailable, "search canonical snippets", err)
	}
	for _, snippet := range snippets {
		if _, ok := seen[snippet.SnippetID]; ok {
			continue
		}
		seen[snippet.SnippetID] = struct{}{}
		results = append(results, storage.OverlayEntry{
			SnippetID:   snippet.SnippetID,
			CommandText: snippet.CommandText,
			Tags:        append([]string(nil), snippet.Tags...),
			Summary:     snippet.Summary,
		})
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	return results, nil
}

// loadCatalog returns the catalog for identity, or a fresh empty catalog
// when none exists yet. A new identity is not an error; the catalog is
// persisted on its first write.
func (e *Engine) loadCatalog(ctx context.Context, identity string) (storage.UserCatalog, error) {
	catalog, err := e.overlays.GetCatalog(ctx, identity)
	if err != nil {
		if stderrors.Is(err, storage.ErrNotFound) {
			return storage.UserCatalog{Identity: identity}, nil
		}
		return storage.UserCatalog{}, errors.Wrap(errors.CodeStorageUnavailable, "load overlay catalog", err)
	}
	return catalog, nil
}

// entryMatches reports whether any term is a substring of the entry's
// command text, summary, or any tag.
func entryMatches(entry storage.OverlayEntry, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(entry.CommandText, term) || strings.Contains(entry.Summary, term) {
			return true
		}
		for _, tag := range entry.Tags {
			if strings.Contains(tag, term) {
				return true
			}
		}
	}
	return false
}

func copyEntry(entry storage.OverlayEntry) storage.OverlayEntry {
	entry.Tags = append([]string(nil), entry.Tags...)
	return entry
}
