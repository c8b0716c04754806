// Package server implements the gRPC PromptService
package server

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nainya/promptvault/internal/logger"
	"github.com/nainya/promptvault/internal/metrics"
	"github.com/nainya/promptvault/pkg/diff"
	"github.com/nainya/promptvault/pkg/prompt"
	"github.com/nainya/promptvault/pkg/template"
	"github.com/nainya/promptvault/pkg/version"
)

// Options configures a Server
type Options struct {
	Metrics *metrics.Metrics
	Logger  *logger.Logger
	// Authors supplies the author for captures that name none
	Authors version.AuthorProvider
	// RetentionLimit is read on every capture so config reloads apply
	RetentionLimit func() int
}

// Server implements PromptServiceServer
type Server struct {
	prompts   *prompt.PromptStore
	revisions *version.Store
	metrics   *metrics.Metrics
	log       *logger.Logger
	retention func() int
}

var _ PromptServiceServer = (*Server)(nil)

// NewServer creates a server with an empty prompt library
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	retention := opts.RetentionLimit
	if retention == nil {
		retention = func() int { return version.DefaultRetentionLimit }
	}

	storeOpts := []version.Option{}
	if opts.Authors != nil {
		storeOpts = append(storeOpts, version.WithAuthorProvider(opts.Authors))
	}
	if opts.Metrics != nil {
		storeOpts = append(storeOpts, version.WithObserver(opts.Metrics))
	}

	return &Server{
		prompts:   prompt.NewPromptStore(),
		revisions: version.NewStore(storeOpts...),
		metrics:   opts.Metrics,
		log:       log.ComponentLogger("prompt_service"),
		retention: retention,
	}
}

// ========== Template Operations ==========

func (s *Server) ExtractPlaceholders(ctx context.Context, req *ExtractRequest) (*ExtractResponse, error) {
	descriptors := template.ExtractDescriptors(req.Template)
	if s.metrics != nil {
		s.metrics.TemplatePlaceholdersTotal.Add(float64(len(descriptors)))
	}

	placeholders := make([]Placeholder, len(descriptors))
	for i, d := range descriptors {
		placeholders[i] = NewPlaceholder(d)
	}
	return &ExtractResponse{Placeholders: placeholders}, nil
}

func (s *Server) Render(ctx context.Context, req *RenderRequest) (*RenderResponse, error) {
	if req.PromptID == "" {
		return s.render(req.Template, req.Values), nil
	}

	var resp *RenderResponse
	err := s.prompts.View(req.PromptID, func(p *prompt.Prompt) error {
		values := p.Values()
		for k, v := range req.Values {
			values[k] = v
		}
		resp = s.render(p.Body, values)
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return resp, nil
}

func (s *Server) Rewrite(ctx context.Context, req *RewriteRequest) (*RewriteResponse, error) {
	descriptors := make([]template.Descriptor, len(req.Placeholders))
	for i, p := range req.Placeholders {
		if p.Key == "" {
			return nil, status.Errorf(codes.InvalidArgument, "placeholder %d has no key", i)
		}
		descriptors[i] = p.Descriptor()
	}
	return &RewriteResponse{Template: template.Rewrite(req.Template, descriptors)}, nil
}

func (s *Server) DiffSnapshots(ctx context.Context, req *DiffSnapshotsRequest) (*diff.PromptDiff, error) {
	start := time.Now()
	d := diff.Snapshots(req.Older, req.Newer)
	if s.metrics != nil {
		s.metrics.RecordDiff("snapshots", time.Since(start))
	}
	return &d, nil
}

// ========== Prompt Operations ==========

func (s *Server) SavePrompt(ctx context.Context, req *SavePromptRequest) (*SavePromptResponse, error) {
	if req.Title == "" && req.Body == "" {
		return nil, status.Error(codes.InvalidArgument, "title or body is required")
	}

	resp := &SavePromptResponse{ID: req.ID}
	update := func(p *prompt.Prompt) error {
		s.apply(p, req, resp, false)
		return nil
	}

	err := prompt.ErrPromptNotFound
	if req.ID != "" {
		err = s.prompts.Update(req.ID, update)
	}
	if errors.Is(err, prompt.ErrPromptNotFound) {
		// Content, baseline and first capture are applied before any other
		// writer can lock the new prompt
		var id string
		id, err = s.prompts.CreatePromptWith(prompt.New(req.ID, req.Title, req.Body), func(p *prompt.Prompt) error {
			s.apply(p, req, resp, true)
			return nil
		})
		switch {
		case err == nil:
			resp.ID = id
			resp.Created = true
			if s.metrics != nil {
				s.metrics.PromptsTotal.Inc()
			}
		case errors.Is(err, prompt.ErrPromptExists):
			// Lost a create race for the same ID
			err = s.prompts.Update(req.ID, update)
		}
	}
	if err != nil {
		return nil, toStatus(err)
	}

	s.log.LogRevisionCapture(resp.ID, revisionID(resp.Revision), resp.Revision != nil && resp.Revision.IsMilestone)
	return resp, nil
}

func (s *Server) ListPrompts(ctx context.Context, req *ListPromptsRequest) (*ListPromptsResponse, error) {
	if req.Tag != "" {
		return &ListPromptsResponse{Prompts: s.prompts.ListPromptsByTag(req.Tag, req.Limit)}, nil
	}
	return &ListPromptsResponse{Prompts: s.prompts.ListPrompts(req.Limit)}, nil
}

func (s *Server) DeletePrompt(ctx context.Context, req *DeletePromptRequest) (*DeletePromptResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	if err := s.prompts.DeletePrompt(req.ID); err != nil {
		return nil, toStatus(err)
	}
	if s.metrics != nil {
		s.metrics.PromptsTotal.Dec()
	}
	return &DeletePromptResponse{Deleted: true}, nil
}

// ========== Revision Operations ==========

func (s *Server) ListRevisions(ctx context.Context, req *ListRevisionsRequest) (*ListRevisionsResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	var revs []*version.Revision
	err := s.prompts.View(req.ID, func(p *prompt.Prompt) error {
		for _, r := range s.revisions.Revisions(p.Revisions, req.Limit) {
			c := *r
			revs = append(revs, &c)
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &ListRevisionsResponse{Revisions: revs}, nil
}

func (s *Server) SetMilestone(ctx context.Context, req *SetMilestoneRequest) (*SetMilestoneResponse, error) {
	if req.ID == "" || req.RevisionID == "" {
		return nil, status.Error(codes.InvalidArgument, "id and revision_id are required")
	}

	err := s.prompts.View(req.ID, func(p *prompt.Prompt) error {
		if !s.revisions.SetMilestone(p.Revisions, req.RevisionID, req.Milestone) {
			return version.ErrRevisionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &SetMilestoneResponse{Updated: true}, nil
}

func (s *Server) DiffRevisions(ctx context.Context, req *DiffRevisionsRequest) (*diff.PromptDiff, error) {
	if req.ID == "" || req.OlderRevisionID == "" || req.NewerRevisionID == "" {
		return nil, status.Error(codes.InvalidArgument, "id, older_revision_id and newer_revision_id are required")
	}

	start := time.Now()
	var d diff.PromptDiff
	err := s.prompts.View(req.ID, func(p *prompt.Prompt) error {
		var err error
		d, err = s.revisions.Diff(p.Revisions, req.OlderRevisionID, req.NewerRevisionID)
		return err
	})
	if err != nil {
		return nil, toStatus(err)
	}
	if s.metrics != nil {
		s.metrics.RecordDiff("revisions", time.Since(start))
	}
	return &d, nil
}

// Helper functions

func (s *Server) render(body string, values map[string]string) *RenderResponse {
	result := template.Render(body, values)
	if s.metrics != nil {
		s.metrics.RecordRender(len(result.MissingKeys))
	}
	return &RenderResponse{Rendered: result.Rendered, MissingKeys: result.MissingKeys}
}

// apply writes the request content into p, syncs parameters and captures a
// revision. A new prompt gets its content as the milestone baseline; an
// existing one gets a baseline of its prior content if it had none.
// Called with the prompt's lock held.
func (s *Server) apply(p *prompt.Prompt, req *SavePromptRequest, resp *SavePromptResponse, created bool) {
	if !created {
		s.revisions.EnsureBaseline(p, p.Revisions, captureAuthor(req)...)
	}

	p.Title = req.Title
	p.Body = req.Body
	p.Tags = append([]string(nil), req.Tags...)
	p.Sync()
	for _, param := range req.Parameters {
		for i := range p.Parameters {
			if p.Parameters[i].Key != param.Key {
				continue
			}
			p.Parameters[i].Value = param.Value
			if param.DefaultValue != nil {
				d := *param.DefaultValue
				p.Parameters[i].DefaultValue = &d
			}
		}
	}

	var r *version.Revision
	if created {
		r = s.revisions.EnsureBaseline(p, p.Revisions, captureAuthor(req)...)
	} else {
		opts := append(captureAuthor(req), version.Retain(s.retention()))
		if req.Milestone {
			opts = append(opts, version.AsMilestone())
		}
		r = s.revisions.Capture(p, p.Revisions, opts...)
	}
	if r != nil {
		c := *r
		resp.Revision = &c
		resp.Captured = true
	}

	resp.Parameters = append([]prompt.Parameter(nil), p.Parameters...)
	resp.Rendered = *s.render(p.Body, p.Values())
}

func captureAuthor(req *SavePromptRequest) []version.CaptureOption {
	if req.Author == nil {
		return nil
	}
	return []version.CaptureOption{version.ByAuthor(*req.Author)}
}

func revisionID(r *version.Revision) string {
	if r == nil {
		return ""
	}
	return r.ID
}

// toStatus maps domain errors to gRPC status errors
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, prompt.ErrPromptNotFound), errors.Is(err, version.ErrRevisionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, prompt.ErrPromptExists):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}
