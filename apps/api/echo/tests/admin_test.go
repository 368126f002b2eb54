package tests

import (
	"net/http"
	"testing"
	"time"

	echoapi "github.com/trezcool/studypal/apps/api/echo"
	"github.com/trezcool/studypal/core/feedback"
	"github.com/trezcool/studypal/tests"
)

func Test_adminApi_stats(t *testing.T) {
	app := setup(t)

	founder := app.createUser(t, "Founder", "founder", "founder@test.io")
	admin := app.createUser(t, "Admin", "admin", "admin@test.io")
	hero := app.createUser(t, "Hero", "hero", "hero@test.cd")
	testutil.CreateUser(t, app.usrRepo, "Naughty", "naughty", "naughty@test.cd", testutil.Password, false)
	heroToken := app.getToken(t, hero)

	start := time.Now().Add(-24 * time.Hour)
	testutil.CreateSession(t, app.sessionRepo, hero.ID, "", start, 30)
	testutil.CreateSession(t, app.sessionRepo, admin.ID, "", start, 45)

	for _, nf := range []feedback.NewFeedback{
		{Type: "bug", Rating: 1, Content: "Nothing loads on my phone."},
		{Type: "feature", Rating: 5, Content: "A calendar view would be great."},
	} {
		rec := app.do(http.MethodPost, "/api/feedback", heroToken, marchallObj(t, nf))
		if rec.Code != http.StatusCreated {
			t.Fatalf("creating feedback failed: %s", rec.Body.String())
		}
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "regular user", token: heroToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "admin is not enough", token: app.getToken(t, admin), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "founder", token: app.getToken(t, founder), wantCode: http.StatusOK,
			wantData: marchallObj(t, echoapi.StatsResponse{
				Users:        4,
				ActiveUsers:  3,
				Sessions:     2,
				TotalMinutes: 75,
				Feedback:     feedback.Summary{Low: 1, High: 1},
				OpenFeedback: 2,
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(http.MethodGet, "/api/admin/stats", tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}
}
