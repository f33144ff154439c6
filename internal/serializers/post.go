// Package serializers maps posts between their stored form and the JSON
// representation exchanged with API clients.
package serializers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/anonto42/blango/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// TagFinder resolves a tag by its unique value
type TagFinder interface {
	GetTagByValue(ctx context.Context, value string) (*models.Tag, error)
}

// UserFinder resolves a user by email
type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Linker builds the URL of the user detail resource
type Linker interface {
	UserDetailURL(email string) string
}

// PostRepresentation is the wire form of a post.
type PostRepresentation struct {
	ID         uint              `json:"id"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Status     models.PostStatus `json:"status"`
	Tags       []string          `json:"tags"`
	Author     string            `json:"author"`
	CreatedAt  time.Time         `json:"created_at"`
	ModifiedAt time.Time         `json:"modified_at"`
}

// postFields holds the writable fields of an inbound payload.
// Nil means the field was absent.
type postFields struct {
	Title  *string            `json:"title" validate:"required,min=1,max=200"`
	Body   *string            `json:"body" validate:"required,min=1"`
	Status *models.PostStatus `json:"status" validate:"omitempty,oneof=draft published"`
	Tags   *[]string          `json:"tags" validate:"omitempty,dive,required,max=100"`
}

// readOnlyFields are accepted on input and dropped
var readOnlyFields = map[string]bool{
	"id":          true,
	"author":      true,
	"created_at":  true,
	"modified_at": true,
}

// PostInput is a validated payload with its tags resolved
type PostInput struct {
	Title  *string
	Body   *string
	Status *models.PostStatus
	Tags   []models.Tag

	hasTags bool
}

// Apply copies the supplied fields onto post. A post without status becomes a draft.
func (in *PostInput) Apply(post *models.Post) {
	if in.Title != nil {
		post.Title = *in.Title
	}
	if in.Body != nil {
		post.Body = *in.Body
	}
	if in.Status != nil {
		post.Status = *in.Status
	}
	if post.Status == "" {
		post.Status = models.StatusDraft
	}
	if in.hasTags {
		post.Tags = in.Tags
	}
}

// PostSerializer converts posts to and from their wire representation.
// It holds no per-request state and is safe for concurrent use.
type PostSerializer struct {
	tags     TagFinder
	users    UserFinder
	validate *validator.Validate
}

// NewPostSerializer creates a PostSerializer resolving references through tags and users
func NewPostSerializer(tags TagFinder, users UserFinder) *PostSerializer {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PostSerializer{tags: tags, users: users, validate: validate}
}

// Represent maps a post, with its tags and author loaded, to the wire form
func (s *PostSerializer) Represent(post *models.Post, links Linker) PostRepresentation {
	return PostRepresentation{
		ID:         post.ID,
		Title:      post.Title,
		Body:       post.Body,
		Status:     post.Status,
		Tags:       post.TagValues(),
		Author:     links.UserDetailURL(post.Author.Email),
		CreatedAt:  post.CreatedAt,
		ModifiedAt: post.ModifiedAt,
	}
}

// RepresentMany maps a list of posts
func (s *PostSerializer) RepresentMany(posts []models.Post, links Linker) []PostRepresentation {
	out := make([]PostRepresentation, len(posts))
	for i := range posts {
		out[i] = s.Represent(&posts[i], links)
	}
	return out
}

// Deserialize validates a JSON payload and resolves its tags.
// In partial mode only the supplied fields are validated.
// Schema and reference failures are returned as *ValidationError; lookup
// failures other than not-found are returned unchanged.
func (s *PostSerializer) Deserialize(ctx context.Context, data []byte, partial bool) (*PostInput, error) {
	verr := newValidationError()

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		verr.Add(NonFieldErrors, "Invalid data. Expected a JSON object.")
		return nil, verr
	}

	var fields postFields
	present := []string{}
	for _, name := range sortedKeys(raw) {
		value := raw[name]
		if readOnlyFields[name] {
			continue
		}
		target := fieldTarget(&fields, name)
		if target == nil {
			verr.Add(name, "Unknown field.")
			continue
		}
		if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			verr.Add(name, "This field may not be null.")
			continue
		}
		if err := json.Unmarshal(value, target.ptr); err != nil {
			verr.Add(name, typeErrorReason(err))
			continue
		}
		present = append(present, target.structField)
	}

	// Surrounding whitespace is not content, so "   " counts as blank
	trimSpace(fields.Title)
	trimSpace(fields.Body)

	var err error
	if partial {
		if len(present) > 0 {
			err = s.validate.StructPartial(fields, present...)
		}
	} else {
		err = s.validate.Struct(fields)
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			name := wireName(fe.Field())
			if _, failed := verr.Fields[name]; failed {
				continue
			}
			verr.Add(name, validationReason(fe))
		}
	} else if err != nil {
		return nil, err
	}

	in := &PostInput{Title: fields.Title, Body: fields.Body, Status: fields.Status}
	if fields.Tags != nil && len(verr.Fields["tags"]) == 0 {
		tags, err := s.resolveTags(ctx, *fields.Tags, verr)
		if err != nil {
			return nil, err
		}
		in.Tags = tags
		in.hasTags = true
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return in, nil
}

// ResolveAuthor looks up a user by email, reporting a miss as a field error on "author"
func (s *PostSerializer) ResolveAuthor(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		verr := newValidationError()
		verr.Add("author", fmt.Sprintf("Object with email=%s does not exist.", email))
		return nil, verr
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *PostSerializer) resolveTags(ctx context.Context, values []string, verr *ValidationError) ([]models.Tag, error) {
	seen := make(map[string]bool, len(values))
	tags := make([]models.Tag, 0, len(values))
	for _, value := range values {
		if seen[value] {
			continue
		}
		seen[value] = true

		tag, err := s.tags.GetTagByValue(ctx, value)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verr.Add("tags", fmt.Sprintf("Object with value=%s does not exist.", value))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve tag %q: %w", value, err)
		}
		tags = append(tags, *tag)
	}
	return tags, nil
}

type target struct {
	ptr         any
	structField string
}

func fieldTarget(fields *postFields, name string) *target {
	switch name {
	case "title":
		return &target{&fields.Title, "Title"}
	case "body":
		return &target{&fields.Body, "Body"}
	case "status":
		return &target{&fields.Status, "Status"}
	case "tags":
		return &target{&fields.Tags, "Tags"}
	}
	return nil
}

func trimSpace(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// wireName strips an element index, so "tags[2]" reports as "tags"
func wireName(field string) string {
	if i := strings.IndexByte(field, '['); i >= 0 {
		return field[:i]
	}
	return field
}

func typeErrorReason(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		expected := typeErr.Type.Kind().String()
		if typeErr.Type.Kind() == reflect.Slice {
			expected = "list of strings"
		}
		return fmt.Sprintf("Incorrect type. Expected %s, received %s.", expected, typeErr.Value)
	}
	return "Invalid value."
}

func validationReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if strings.Contains(fe.Field(), "[") {
			return "This field may not be blank."
		}
		return "This field is required."
	case "min":
		return "This field may not be blank."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}
