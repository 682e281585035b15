package service

import (
	"context"
	"encoding/json"
	"slices"

	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	chatmodels "access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/sandbox/models"
	"access-tool/internal/sandbox/repository"
)

// Rules serves condition CRUD under /admin/chats/{slug}/rules/{typePath}.
type Rules struct {
	chats     repository.ChatRepository
	resources *Resources
	logger    *zap.Logger
}

func NewRules(chats repository.ChatRepository, resources *Resources, logger *zap.Logger) *Rules {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rules{chats: chats, resources: resources, logger: logger}
}

// Decode reads a condition body posted to typePath. A missing type is taken from the path.
func (s *Rules) Decode(typePath string, body []byte) (condition.Condition, error) {
	entry, err := s.resources.Entry(typePath)
	if err != nil {
		return condition.Condition{}, err
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return condition.Condition{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid request body")
	}
	if _, ok := fields["type"]; !ok {
		fields["type"], _ = json.Marshal(entry.Type)
		if body, err = json.Marshal(fields); err != nil {
			return condition.Condition{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to read request body")
		}
	}

	var c condition.Condition
	if err := json.Unmarshal(body, &c); err != nil {
		return condition.Condition{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Invalid condition")
	}
	if c.Type != entry.Type {
		return condition.Condition{}, fieldError("type", "does not match the endpoint")
	}
	return c, nil
}

func (s *Rules) List(ctx context.Context, slug, typePath string) ([]condition.Condition, error) {
	entry, err := s.resources.Entry(typePath)
	if err != nil {
		return nil, err
	}
	rec, err := s.chats.GetChat(ctx, slug)
	if err != nil {
		return nil, repoError(err)
	}

	out := []condition.Condition{}
	for _, c := range chatmodels.Flatten(rec.Groups) {
		if c.Type == entry.Type {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Rules) Get(ctx context.Context, slug, typePath string, id int64) (condition.Condition, error) {
	entry, err := s.resources.Entry(typePath)
	if err != nil {
		return condition.Condition{}, err
	}
	rec, err := s.chats.GetChat(ctx, slug)
	if err != nil {
		return condition.Condition{}, repoError(err)
	}
	gi, ci := findRule(rec.Groups, id)
	if gi < 0 || rec.Groups[gi].Items[ci].Type != entry.Type {
		return condition.Condition{}, repoError(ErrRuleNotFound)
	}
	return rec.Groups[gi].Items[ci], nil
}

// Create validates c and appends it to its group. A rule without a known group opens a
// new group at the end.
func (s *Rules) Create(ctx context.Context, slug string, c condition.Condition) (condition.Condition, error) {
	if err := s.validate(c); err != nil {
		return condition.Condition{}, err
	}
	c = s.describe(c)

	var created condition.Condition
	_, err := s.chats.UpdateChat(ctx, slug, func(rec *models.ChatRecord) error {
		c.ID = s.chats.NextID()
		gi := slices.IndexFunc(rec.Groups, func(g chatmodels.Group) bool { return g.ID == c.GroupID })
		if c.GroupID == 0 || gi < 0 {
			rec.Groups = append(rec.Groups, chatmodels.Group{ID: s.chats.NextID()})
			gi = len(rec.Groups) - 1
		}
		c.GroupID = rec.Groups[gi].ID
		rec.Groups[gi].Items = append(rec.Groups[gi].Items, c)
		created = c.Clone()
		return nil
	})
	if err != nil {
		return condition.Condition{}, repoError(err)
	}

	s.logger.Info("Rule created",
		zap.String("slug", slug),
		zap.String("type", string(created.Type)),
		zap.Int64("id", created.ID),
		zap.Int64("group_id", created.GroupID))
	return created, nil
}

// Update replaces the payload and the enabled flag of rule id. Its group and position
// stay; moves go through MoveRule.
func (s *Rules) Update(ctx context.Context, slug string, id int64, c condition.Condition) (condition.Condition, error) {
	if err := s.validate(c); err != nil {
		return condition.Condition{}, err
	}
	c = s.describe(c)

	var updated condition.Condition
	_, err := s.chats.UpdateChat(ctx, slug, func(rec *models.ChatRecord) error {
		gi, ci := findRule(rec.Groups, id)
		if gi < 0 || rec.Groups[gi].Items[ci].Type != c.Type {
			return ErrRuleNotFound
		}
		current := &rec.Groups[gi].Items[ci]
		current.IsEnabled = c.IsEnabled
		current.Payload = c.Payload
		current.Title = c.Title
		current.PhotoURL = c.PhotoURL
		current.PromoteURL = c.PromoteURL
		updated = current.Clone()
		return nil
	})
	if err != nil {
		return condition.Condition{}, repoError(err)
	}
	return updated, nil
}

func (s *Rules) Delete(ctx context.Context, slug, typePath string, id int64) error {
	entry, err := s.resources.Entry(typePath)
	if err != nil {
		return err
	}
	_, err = s.chats.UpdateChat(ctx, slug, func(rec *models.ChatRecord) error {
		gi, ci := findRule(rec.Groups, id)
		if gi < 0 || rec.Groups[gi].Items[ci].Type != entry.Type {
			return ErrRuleNotFound
		}
		rec.Groups[gi].Items = slices.Delete(rec.Groups[gi].Items, ci, ci+1)
		return nil
	})
	if err != nil {
		return repoError(err)
	}
	s.logger.Info("Rule deleted", zap.String("slug", slug), zap.Int64("id", id))
	return nil
}

func (s *Rules) validate(c condition.Condition) error {
	entry, ok := s.resources.registry.Lookup(c.Type)
	if !ok {
		return fieldError("type", "unknown condition type")
	}
	if err := registry.Validate(c, s.resources.categoriesOf(entry)); err != nil {
		return invalid(err)
	}
	return nil
}

// describe drops the fields the client may not set and fills the display fields from
// the resource metadata.
func (s *Rules) describe(c condition.Condition) condition.Condition {
	c.IsEligible = false
	c.Actual = nil
	address, ok := condition.Address(c.Payload)
	if !ok {
		return c
	}
	entry, _ := s.resources.registry.Lookup(c.Type)
	if meta, err := s.resources.Prefetch(entry.Path, address); err == nil {
		c.Title = meta.Name
		c.PhotoURL = meta.Logo
	}
	return c
}
