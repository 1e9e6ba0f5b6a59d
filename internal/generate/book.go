package generate

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"skald/internal/config"
	"skald/internal/jobs"
	"skald/internal/logging"
	"skald/internal/services"
	"skald/internal/services/llm"
	"skald/internal/stage"
	"skald/internal/textutil"
)

// Outline entries arrive as <chapterN>Title</chapterN> tags. Go's regexp
// has no backreferences, so the closing tag matches any chapter number and
// malformed nesting falls out in the numeric sort.
var chapterTagPattern = regexp.MustCompile(`(?s)<chapter(\d+)>(.*?)</chapter\d+>`)

type chapterEntry struct {
	Number int
	Title  string
}

// parseOutline extracts chapter entries sorted by number. Fewer entries
// than requested is tolerated; limit <= 0 means no cap.
func parseOutline(text string, limit int) []chapterEntry {
	matches := chapterTagPattern.FindAllStringSubmatch(text, -1)
	entries := make([]chapterEntry, 0, len(matches))
	for _, m := range matches {
		number, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}
		entries = append(entries, chapterEntry{Number: number, Title: title})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Number < entries[j].Number })
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// OutlineStage asks for the book's chapter list and persists the raw tagged
// response for the chapter stage to re-parse.
type OutlineStage struct {
	capability
	cfg    *config.Config
	client *llm.Client
	logger *slog.Logger
}

func NewOutlineStage(cfg *config.Config, logger *slog.Logger) *OutlineStage {
	return NewOutlineStageWithClient(cfg, logger, newLLMClient(cfg))
}

func NewOutlineStageWithClient(cfg *config.Config, logger *slog.Logger, client *llm.Client) *OutlineStage {
	return &OutlineStage{
		capability: capability{name: "outline"},
		cfg:        cfg,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "outline-stage"),
	}
}

func (s *OutlineStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *OutlineStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	var opts BookOptions
	if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
		return stage.Result{}, err
	}

	var outline string
	if s.cfg.Providers.TestMode {
		outline = cannedOutline(job.Topic, opts.chapters())
	} else {
		generated, err := s.client.Complete(ctx, bookSystemPrompt,
			outlinePrompt(job.Topic, opts.chapters(), opts.genre(), opts.style()))
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "generate outline", "", err)
		}
		outline = generated
	}

	entries := parseOutline(outline, opts.chapters())
	if len(entries) == 0 {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "parse outline",
			"no chapter tags found in outline response", nil)
	}

	path := outlinePath(job)
	if err := os.WriteFile(path, []byte(outline), 0o644); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "write outline", "", err)
	}

	s.logger.Info("outline generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("chapters", len(entries)),
	)
	return stage.Result{Output: path, Artifacts: []string{path}}, nil
}

// ChapterStage writes each outlined chapter in order, updating the job's
// phase detail so polling shows which chapter is in flight. A chapter
// failure halts the run; finished chapter files stay on disk.
type ChapterStage struct {
	capability
	cfg    *config.Config
	store  *jobs.Store
	client *llm.Client
	logger *slog.Logger
}

func NewChapterStage(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *ChapterStage {
	return NewChapterStageWithClient(cfg, store, logger, newLLMClient(cfg))
}

func NewChapterStageWithClient(cfg *config.Config, store *jobs.Store, logger *slog.Logger, client *llm.Client) *ChapterStage {
	return &ChapterStage{
		capability: capability{name: "chapters"},
		cfg:        cfg,
		store:      store,
		client:     client,
		logger:     logging.NewComponentLogger(logger, "chapter-stage"),
	}
}

func (s *ChapterStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *ChapterStage) generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	var opts BookOptions
	if err := stage.DecodeOptions(job.OptionsJSON, &opts); err != nil {
		return stage.Result{}, err
	}

	raw, err := os.ReadFile(outlinePath(job))
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read outline", "", err)
	}
	entries := parseOutline(string(raw), opts.chapters())
	if len(entries) == 0 {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read outline",
			"outline has no chapter tags", nil)
	}

	dir := bookContentDir(job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "create book directory", "", err)
	}

	titles := make([]string, len(entries))
	for i, entry := range entries {
		titles[i] = entry.Title
	}

	var artifacts []string
	for i, entry := range entries {
		s.updateDetail(ctx, job, fmt.Sprintf("chapter %d of %d", i+1, len(entries)))

		var content string
		if s.cfg.Providers.TestMode {
			content = cannedChapter(job.Topic, entry.Title, entry.Number)
		} else {
			generated, err := s.client.Complete(ctx, bookSystemPrompt,
				chapterPrompt(job.Topic, opts.genre(), opts.style(), entry.Title, i+1, len(entries), titles))
			if err != nil {
				return stage.Result{}, services.Wrap(services.ErrStage, s.name,
					fmt.Sprintf("generate chapter %d of %d", i+1, len(entries)), "", err)
			}
			content = generated
		}

		path := filepath.Join(dir, chapterFileName(i+1, entry.Title))
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name,
				fmt.Sprintf("write chapter %d of %d", i+1, len(entries)), "", err)
		}
		artifacts = append(artifacts, path)
	}

	s.logger.Info("chapters generated",
		logging.String(logging.FieldJobID, job.ID),
		logging.Int("count", len(artifacts)),
	)
	return stage.Result{Output: dir, Artifacts: artifacts}, nil
}

func (s *ChapterStage) updateDetail(ctx context.Context, job *jobs.Job, detail string) {
	job.SetPhase(s.name, detail)
	if err := s.store.Update(ctx, job); err != nil {
		s.logger.Warn("failed to persist chapter progress",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func chapterFileName(index int, title string) string {
	slug := textutil.Slugify(title)
	if slug == "" {
		return fmt.Sprintf("chapter_%02d.txt", index)
	}
	return fmt.Sprintf("chapter_%02d_%s.txt", index, slug)
}

// BookStage concatenates the chapter files into the deliverable.
type BookStage struct {
	capability
	logger *slog.Logger
}

func NewBookStage(logger *slog.Logger) *BookStage {
	return &BookStage{
		capability: capability{name: "assemble"},
		logger:     logging.NewComponentLogger(logger, "book-stage"),
	}
}

var chapterFilePattern = regexp.MustCompile(`^chapter_(\d+)(?:_(.*))?\.txt$`)

func (s *BookStage) Generate(ctx context.Context, job *jobs.Job) (stage.Result, error) {
	return runTracked(&s.capability, func() (stage.Result, error) {
		return s.generate(ctx, job)
	})
}

func (s *BookStage) generate(_ context.Context, job *jobs.Job) (stage.Result, error) {
	dir := bookContentDir(job)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read book directory", "", err)
	}

	type chapterFile struct {
		index int
		title string
		path  string
	}
	var files []chapterFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := chapterFilePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		index, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		files = append(files, chapterFile{
			index: index,
			title: strings.ReplaceAll(m[2], "_", " "),
			path:  filepath.Join(dir, entry.Name()),
		})
	}
	if len(files) == 0 {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "collect chapters",
			"no chapter files found", nil)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].index < files[j].index })

	titler := cases.Title(language.English)
	var book strings.Builder
	heading := titler.String(job.Topic)
	book.WriteString(heading + "\n")
	book.WriteString(strings.Repeat("=", len(heading)) + "\n\n")

	for _, file := range files {
		content, err := os.ReadFile(file.path)
		if err != nil {
			return stage.Result{}, services.Wrap(services.ErrStage, s.name, "read chapter", "", err)
		}
		fmt.Fprintf(&book, "Chapter %d: %s\n\n", file.index, titler.String(file.title))
		book.Write(content)
		book.WriteString("\n\n")
	}

	path := fullBookPath(job)
	if err := os.WriteFile(path, []byte(book.String()), 0o644); err != nil {
		return stage.Result{}, services.Wrap(services.ErrStage, s.name, "write book", "", err)
	}

	s.logger.Info("book assembled",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("path", path),
		logging.Int("chapters", len(files)),
	)
	return stage.Result{Output: path, Artifacts: []string{path}}, nil
}
