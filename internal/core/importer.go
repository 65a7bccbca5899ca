package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

// Options configures an Importer. Type and field names are the aliases used
// by the content repository.
type Options struct {
	HomeType         string
	SectionType      string
	ItemType         string
	TitleField       string
	DescriptionField string
	ImageField       string

	// StrictColumns reports rows with fewer than four fields as
	// TooFewColumns instead of skipping them.
	StrictColumns bool

	// CleanupOrphanImages deletes a stored image when the item that would
	// reference it fails to persist.
	CleanupOrphanImages bool

	// MediaPrefix is the blob key prefix for images, e.g. "media".
	MediaPrefix string

	// Parsers overrides the default CSV/spreadsheet registry.
	Parsers *ParserRegistry
}

// DefaultOptions returns the aliases of a stock site.
func DefaultOptions() Options {
	return Options{
		HomeType:         "homePage",
		SectionType:      "article",
		ItemType:         "articleContent",
		TitleField:       "title",
		DescriptionField: "description",
		ImageField:       "articleImage",
		MediaPrefix:      "media",
	}
}

// Importer runs import batches. It holds no per-batch state and may be shared;
// each batch is processed sequentially, one file and one row at a time.
type Importer struct {
	content ContentRepository
	parsers *ParserRegistry
	images  *ImageIngestor
	writer  *ContentWriter
	opts    Options
	logger  *slog.Logger
}

// NewImporter wires an Importer from its collaborators.
func NewImporter(content ContentRepository, media MediaRepository, blobs BlobStore, opts Options, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	parsers := opts.Parsers
	if parsers == nil {
		parsers = DefaultParsers()
	}
	return &Importer{
		content: content,
		parsers: parsers,
		images:  NewImageIngestor(media, blobs, opts.MediaPrefix, logger),
		writer: NewContentWriter(content, ContentFields{
			ItemType:    opts.ItemType,
			Title:       opts.TitleField,
			Description: opts.DescriptionField,
			Image:       opts.ImageField,
		}),
		opts:   opts,
		logger: logger,
	}
}

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]+$`)

type batchRequest struct {
	Paths      []string
	ImageTypes []string
}

func (r batchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Paths, validation.Required, validation.Each(validation.Required)),
		validation.Field(&r.ImageTypes,
			validation.Each(validation.Match(extensionPattern).Error("must be a lower-case extension with a leading dot")),
		),
	)
}

// ImportBatch imports every file in paths, in order, and returns one result
// per path.
//
// allowedImageTypes lists the lower-case image extensions (with the leading
// dot) the caller accepts. A row whose image extension is not in it fails
// with KindUnsupportedImageExtension. The ingestor also enforces
// DefaultImageExtensions, so an extension the caller allows but the media
// library does not fails later with KindImageUploadFailed.
// Only an empty path list or malformed arguments return an error; every
// other failure is recorded in the outcome. If ctx is cancelled, the current
// file stops at the next row and the remaining files are recorded as not
// processed.
func (im *Importer) ImportBatch(ctx context.Context, paths []string, allowedImageTypes []string) (*ImportOutcome, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	if err := (batchRequest{Paths: paths, ImageTypes: allowedImageTypes}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start := time.Now()
	out := &ImportOutcome{
		BatchID: uuid.New().String(),
		Files:   make([]FileResult, 0, len(paths)),
	}
	logger := im.logger.With("batch_id", out.BatchID)
	allowed := NewExtensionSet(allowedImageTypes...)

	logger.Info("import started", "files", len(paths), "image_types", allowed.Sorted())

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			out.Files = append(out.Files, FileResult{
				Path:   p,
				Errors: []*ImportError{{Kind: KindProcessing, File: p, Detail: "not processed", Err: err}},
			})
			continue
		}

		res := im.importFile(ctx, logger, p, allowed)
		out.Files = append(out.Files, res)
	}

	out.Duration = time.Since(start)
	out.finish()

	logger.Info("import finished",
		"status", out.Status.String(),
		"created", out.Created(),
		"errors", len(out.Errors()),
		"duration", out.Duration,
	)

	return out, nil
}

// importFile processes one file. It never returns an error; every failure
// is recorded in the result.
func (im *Importer) importFile(ctx context.Context, logger *slog.Logger, path string, allowed ExtensionSet) FileResult {
	res := FileResult{Path: path}
	logger = logger.With("file", path)

	fail := func(e *ImportError) FileResult {
		res.Errors = append(res.Errors, e)
		logger.Warn("file rejected", "kind", e.Kind.String(), "error", e.Error())
		return res
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(fileError(KindFileNotFound, path, err))
		}
		return fail(fileError(KindProcessing, path, err))
	}

	parser, ext, ok := im.parsers.Lookup(path)
	if !ok {
		return fail(&ImportError{Kind: KindUnsupportedFileType, File: path, Value: ext})
	}

	// An empty or unreadable file is reported as such even when the
	// content tree has nowhere to put it.
	rd, err := parser.Open(ctx, path)
	if err != nil {
		var ie *ImportError
		if errors.As(err, &ie) {
			return fail(ie)
		}
		return fail(fileError(KindProcessing, path, err))
	}
	defer rd.Close()

	parent, perr := im.resolveParent(ctx, path)
	if perr != nil {
		return fail(perr)
	}

	existing, err := im.content.Children(ctx, parent.SectionID)
	if err != nil {
		return fail(fileError(KindProcessing, path, fmt.Errorf("list section children: %w", err)))
	}
	index := indexFromNodes(existing)
	logger.Debug("section indexed", "section_id", parent.SectionID, "existing", index.Len())

	for rd.Next() {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, &ImportError{Kind: KindProcessing, File: path, Detail: "interrupted", Err: err})
			break
		}

		row := rd.Row()
		switch rerr := im.importRow(ctx, logger, path, row, parent, index, allowed); {
		case rerr == nil:
			res.Created++
		case errors.Is(rerr, errRowSkipped):
			res.Skipped++
		default:
			var ie *ImportError
			if errors.As(rerr, &ie) {
				res.Errors = append(res.Errors, ie)
			}
		}
	}
	if err := rd.Err(); err != nil {
		var ie *ImportError
		if !errors.As(err, &ie) {
			ie = fileError(KindProcessing, path, err)
		}
		res.Errors = append(res.Errors, ie)
	}

	logger.Info("file imported", "created", res.Created, "skipped", res.Skipped, "errors", len(res.Errors))
	return res
}

// resolveParent finds the home node among the roots and the first section
// node beneath it.
func (im *Importer) resolveParent(ctx context.Context, path string) (ParentContext, *ImportError) {
	roots, err := im.content.RootNodes(ctx)
	if err != nil {
		return ParentContext{}, fileError(KindProcessing, path, fmt.Errorf("list root nodes: %w", err))
	}
	home, ok := firstOfType(roots, im.opts.HomeType)
	if !ok {
		return ParentContext{}, &ImportError{Kind: KindHomeNotFound, File: path, Value: im.opts.HomeType}
	}

	children, err := im.content.Children(ctx, home.ID)
	if err != nil {
		return ParentContext{}, fileError(KindProcessing, path, fmt.Errorf("list home children: %w", err))
	}
	section, ok := firstOfType(children, im.opts.SectionType)
	if !ok {
		return ParentContext{}, &ImportError{Kind: KindSectionNotFound, File: path, Value: im.opts.SectionType}
	}

	return ParentContext{HomeID: home.ID, SectionID: section.ID}, nil
}

func firstOfType(nodes []Node, typeAlias string) (Node, bool) {
	for _, n := range nodes {
		if n.TypeAlias == typeAlias {
			return n, true
		}
	}
	return Node{}, false
}

var errRowSkipped = errors.New("row skipped")

// importRow validates and imports a single row. It returns nil when an item
// was created, errRowSkipped for silently dropped rows, or an *ImportError.
func (im *Importer) importRow(ctx context.Context, logger *slog.Logger, path string, row ImportRow, parent ParentContext, index *DuplicateIndex, allowed ExtensionSet) error {
	if row.Err != nil {
		return rowError(KindMalformedRow, path, row, "", row.Err)
	}
	if row.IsBlank() {
		return errRowSkipped
	}

	if row.Columns < RowWidth {
		if !im.opts.StrictColumns {
			logger.Debug("short row skipped", "row", row.Line, "columns", row.Columns)
			return errRowSkipped
		}
		return rowError(KindTooFewColumns, path, row, strconv.Itoa(row.Columns), nil)
	}

	if row.Name == "" {
		return rowError(KindMissingName, path, row, "", nil)
	}

	if index.Contains(row.Name) {
		return rowError(KindDuplicateItem, path, row, row.Name, nil)
	}

	ext := imageExtension(row.ImagePath)
	if !allowed.Has(ext) {
		return rowError(KindUnsupportedImageExtension, path, row, ext, nil)
	}

	ref, err := im.images.Ingest(ctx, row.ImagePath, allowed)
	if err != nil {
		logger.Warn("image ingest failed", "row", row.Line, "image", row.ImagePath, "error", err)
		return rowError(KindImageUploadFailed, path, row, row.ImagePath, err)
	}
	if err := im.images.Confirm(ctx, ref); err != nil {
		logger.Warn("stored image not found", "row", row.Line, "media_id", ref.MediaID, "error", err)
		return rowError(KindImageUploadFailed, path, row, row.ImagePath, err)
	}

	item, err := im.writer.CreateAndPublish(ctx, parent.SectionID, row.Name, row.Title, row.Description, ref)
	if err != nil {
		logger.Error("content item not saved", "row", row.Line, "name", row.Name, "error", err)
		if im.opts.CleanupOrphanImages {
			if derr := im.images.Discard(ctx, ref); derr != nil {
				logger.Warn("orphan image not removed", "media_id", ref.MediaID, "error", derr)
			}
		}
		// Another writer took the name after the index was built.
		if errors.Is(err, ErrDuplicateItem) {
			return rowError(KindDuplicateItem, path, row, row.Name, err)
		}
		return rowError(KindContentPersistFailed, path, row, row.Name, err)
	}

	index.Add(row.Name)
	logger.Debug("item created", "row", row.Line, "name", row.Name, "item_id", item.ID)
	return nil
}
