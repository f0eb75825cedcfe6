package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stillfm/config"
	"stillfm/core/auth"
	"stillfm/core/player"
	"stillfm/model"

	. "github.com/smartystreets/goconvey/convey"
)

// stubUserRepo serves a fixed set of accounts.
type stubUserRepo struct {
	users map[int64]*model.User
}

func (r *stubUserRepo) Create(user *model.User) (int64, error) {
	user.ID = int64(len(r.users) + 1)
	r.users[user.ID] = user
	return user.ID, nil
}

func (r *stubUserRepo) GetByID(id int64) (*model.User, error) {
	return r.users[id], nil
}

func (r *stubUserRepo) GetByUsername(username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) GetByEmail(email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func TestMeHandler(t *testing.T) {
	Convey("Given the profile endpoint", t, func() {
		auth.SetSecret("test-secret")

		users := &stubUserRepo{users: map[int64]*model.User{
			7: {ID: 7, Username: "maya", Email: "maya@example.com"},
		}}
		var opens int64
		factory := func(ev player.Events) player.Source {
			return &stubSource{opens: &opens}
		}
		h := NewAPIHandler(
			&stubTrackRepo{tracks: map[string]*model.Track{}},
			users,
			player.NewManager(factory),
			newMemSnapshotCache(),
			nil,
			&config.Config{},
		)

		Convey("Returns the caller's profile", func() {
			rec := httptest.NewRecorder()
			h.AuthMiddleware(h.MeHandler)(rec, authedRequest(http.MethodGet, "/api/auth/me", nil))
			So(rec.Code, ShouldEqual, http.StatusOK)

			var user model.User
			So(json.Unmarshal(rec.Body.Bytes(), &user), ShouldBeNil)
			So(user.ID, ShouldEqual, 7)
			So(user.Username, ShouldEqual, "maya")
		})

		Convey("A token for a deleted account is a 404", func() {
			delete(users.users, 7)
			rec := httptest.NewRecorder()
			h.AuthMiddleware(h.MeHandler)(rec, authedRequest(http.MethodGet, "/api/auth/me", nil))
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("No token is a 401", func() {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			h.AuthMiddleware(h.MeHandler)(rec, req)
			So(rec.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})
}
