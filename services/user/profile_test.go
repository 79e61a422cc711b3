package user

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	userRepo "proxo/database/repository/user"
	"proxo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	users     map[string]*models.User
	createErr error
}

func (r *fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	copied := *u
	r.users[u.ID] = &copied
	return nil
}

func (r *fakeUserRepo) Search(ctx context.Context, f userRepo.SearchFilter) ([]models.User, error) {
	var out []models.User
	for _, u := range r.users {
		if (f.School == "" || u.School == f.School) && (f.SchoolYear == "" || u.SchoolYear == f.SchoolYear) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, userRepo.ErrNotFound
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == strings.ToLower(username) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, userRepo.ErrNotFound
}

func (r *fakeUserRepo) UpdatePhotoURL(ctx context.Context, id, photoURL string) error {
	u, ok := r.users[id]
	if !ok {
		return userRepo.ErrNotFound
	}
	u.PhotoURL = photoURL
	return nil
}

type fakePhotos struct {
	uploaded string
	err      error
}

func (p *fakePhotos) UploadProfilePhoto(ctx context.Context, username string, photo io.Reader) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	data, _ := io.ReadAll(photo)
	p.uploaded = string(data)
	return "https://res.cloudinary.com/demo/profile_" + username + ".jpg", nil
}

func (p *fakePhotos) DeleteProfilePhoto(ctx context.Context, username string) error {
	return nil
}

func newService(photos *fakePhotos) (*DefaultUserService, *fakeUserRepo) {
	repo := &fakeUserRepo{users: map[string]*models.User{
		"uid-1": {ID: "uid-1", Username: "maya", Name: "Maya"},
		"uid-2": {ID: "uid-2"},
	}}
	svc := &DefaultUserService{Repo: repo, Logger: zap.NewNop()}
	if photos != nil {
		svc.Photos = photos
	}
	return svc, repo
}

func TestUsernameForUID(t *testing.T) {
	svc, _ := newService(nil)

	name, err := svc.UsernameForUID(context.Background(), "uid-1")
	require.NoError(t, err)
	assert.Equal(t, "maya", name)

	_, err = svc.UsernameForUID(context.Background(), "uid-2")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	_, err = svc.UsernameForUID(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestGetProfile(t *testing.T) {
	svc, _ := newService(nil)

	u, err := svc.GetProfile(context.Background(), "Maya")
	require.NoError(t, err)
	assert.Equal(t, "Maya", u.Name)

	_, err = svc.GetProfile(context.Background(), " ")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUpdatePhoto(t *testing.T) {
	photos := &fakePhotos{}
	svc, repo := newService(photos)

	u, err := svc.UpdatePhoto(context.Background(), "uid-1", strings.NewReader("jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/profile_maya.jpg", u.PhotoURL)
	assert.Equal(t, u.PhotoURL, repo.users["uid-1"].PhotoURL)
	assert.Equal(t, "jpeg-bytes", photos.uploaded)
}

func TestUpdatePhotoErrors(t *testing.T) {
	svc, repo := newService(nil)
	_, err := svc.UpdatePhoto(context.Background(), "uid-1", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrPhotoStorageUnavailable)

	uploadErr := errors.New("cloudinary down")
	svc, repo = newService(&fakePhotos{err: uploadErr})
	_, err = svc.UpdatePhoto(context.Background(), "uid-1", strings.NewReader("x"))
	assert.ErrorIs(t, err, uploadErr)
	assert.Empty(t, repo.users["uid-1"].PhotoURL)

	_, err = svc.UpdatePhoto(context.Background(), "missing", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSetupProfile(t *testing.T) {
	svc, repo := newService(nil)

	u, err := svc.SetupProfile(context.Background(), "uid-3", models.ProfileInput{
		Username:   "  Leo.Park_ ",
		Name:       " Leo ",
		School:     "NYU",
		SchoolYear: "Junior",
		Interests:  "chess, ,coffee ,Film",
	})
	require.NoError(t, err)
	assert.Equal(t, "leo.park_", u.Username)
	assert.Equal(t, "Leo", u.Name)
	assert.Equal(t, []string{"chess", "coffee", "Film"}, u.Interests)
	assert.False(t, u.CreatedAt.IsZero())
	require.Contains(t, repo.users, "uid-3")

	name, err := svc.UsernameForUID(context.Background(), "uid-3")
	require.NoError(t, err)
	assert.Equal(t, "leo.park_", name)
}

func TestSetupProfileRejects(t *testing.T) {
	tests := []struct {
		name    string
		uid     string
		input   models.ProfileInput
		field   string
		wantErr error
	}{
		{name: "missing name", uid: "uid-3", input: models.ProfileInput{Username: "leopark"}, field: "name"},
		{name: "missing username", uid: "uid-3", input: models.ProfileInput{Name: "Leo"}, field: "username"},
		{name: "too short", uid: "uid-3", input: models.ProfileInput{Name: "Leo", Username: "leo"}, field: "username"},
		{name: "too long", uid: "uid-3", input: models.ProfileInput{Name: "Leo", Username: strings.Repeat("l", 31)}, field: "username"},
		{name: "bad characters", uid: "uid-3", input: models.ProfileInput{Name: "Leo", Username: "leo park!"}, field: "username"},
		{name: "unknown year", uid: "uid-3", input: models.ProfileInput{Name: "Leo", Username: "leopark", SchoolYear: "Fifth"}, field: "schoolYear"},
		{name: "username taken", uid: "uid-3", input: models.ProfileInput{Name: "Maya", Username: "MAYA "}, wantErr: ErrUsernameTaken},
		{name: "already set up", uid: "uid-1", input: models.ProfileInput{Name: "Maya", Username: "maya2"}, wantErr: ErrProfileExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newService(nil)
			_, err := svc.SetupProfile(context.Background(), tt.uid, tt.input)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.field, verr.Field)
			}
			assert.NotContains(t, repo.users, "uid-3")
		})
	}
}

func TestSetupProfileDuplicateOnInsert(t *testing.T) {
	svc, repo := newService(nil)
	repo.createErr = userRepo.ErrDuplicate
	_, err := svc.SetupProfile(context.Background(), "uid-3", models.ProfileInput{Name: "Leo", Username: "leopark"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	repo.createErr = errors.New("mongo down")
	_, err = svc.SetupProfile(context.Background(), "uid-3", models.ProfileInput{Name: "Leo", Username: "leopark"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUsernameTaken)
}

func TestSearchUsers(t *testing.T) {
	svc, repo := newService(nil)
	repo.users["uid-3"] = &models.User{ID: "uid-3", Username: "leo", School: "NYU", SchoolYear: "Junior", Interests: []string{"Chess", "film"}}
	repo.users["uid-4"] = &models.User{ID: "uid-4", Username: "ana", School: "NYU", SchoolYear: "Senior", Interests: []string{"climbing"}}
	repo.users["uid-5"] = &models.User{ID: "uid-5", Username: "sam", School: "CUNY", SchoolYear: "Junior", Interests: []string{"chess"}}

	got, err := svc.SearchUsers(context.Background(), models.UserQuery{School: "NYU"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "leo"}, usernames(got))

	got, err = svc.SearchUsers(context.Background(), models.UserQuery{SchoolYear: "Junior", Interests: "CHESS, knitting"})
	require.NoError(t, err)
	assert.Equal(t, []string{"leo", "sam"}, usernames(got))

	got, err = svc.SearchUsers(context.Background(), models.UserQuery{School: "NYU", Interests: "knitting"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func usernames(users []models.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.Username
	}
	return out
}
