package restapi_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"golang.org/x/oauth2"

	"taskflow/internal/backend/restapi"
	"taskflow/internal/gateway"
	"taskflow/internal/service"
	"taskflow/internal/testutil"
)

func newClient(t *testing.T, token string) (*restapi.Client, *testutil.APIServer) {
	t.Helper()
	svc := testutil.NewFakeService()
	srv := testutil.NewAPIServer(t, svc)

	var src oauth2.TokenSource
	if token != "" {
		src = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	}
	gw, err := gateway.New(srv.URL, src)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	return restapi.New(gw), srv
}

func TestClient_TaskRoutes(t *testing.T) {
	c, srv := newClient(t, testutil.TokenFor("u1"))
	ctx := context.Background()
	svc := srv.Svc
	svc.AddTask("u1", "t-a", "Buy milk", service.CategoryPersonal, service.StatusPending)
	svc.AddTask("u1", "t-b", "Ship report", service.CategoryWork, service.StatusCompleted)

	env, err := c.List(ctx, "u1")
	if err != nil || len(env.Tasks) != 2 {
		t.Fatalf("list = %+v, %v", env, err)
	}
	if env, _ := c.ListPending(ctx, "u1"); len(env.Tasks) != 1 || env.Tasks[0].ID != "t-a" {
		t.Errorf("pending = %+v", env.Tasks)
	}
	if env, _ := c.ListCompleted(ctx, "u1"); len(env.Tasks) != 1 || env.Tasks[0].ID != "t-b" {
		t.Errorf("completed = %+v", env.Tasks)
	}
	if env, _ := c.ListByCategory(ctx, "u1", service.CategoryWork); len(env.Tasks) != 1 || env.Tasks[0].ID != "t-b" {
		t.Errorf("by category = %+v", env.Tasks)
	}
	if env, _ := c.Search(ctx, "milk"); len(env.Tasks) != 1 || env.Tasks[0].ID != "t-a" {
		t.Errorf("search = %+v", env.Tasks)
	}
	if env, _ := c.GetByID(ctx, "t-b"); env.Task == nil || env.Task.Title != "Ship report" {
		t.Errorf("get = %+v", env.Task)
	}

	created, err := c.Create(ctx, service.TaskInput{Title: "New", Category: service.CategoryOther, Owner: "u1"})
	if err != nil || created.Task == nil || created.Task.ID == "" {
		t.Fatalf("create = %+v, %v", created, err)
	}
	title := "Renamed"
	if env, err := c.Update(ctx, created.Task.ID, service.TaskPatch{Title: &title}); err != nil || env.Task.Title != "Renamed" {
		t.Errorf("update = %+v, %v", env.Task, err)
	}
	if env, err := c.ToggleStatus(ctx, created.Task.ID, service.StatusCompleted); err != nil || env.Task.Status != service.StatusCompleted {
		t.Errorf("toggle = %+v, %v", env.Task, err)
	}
	if _, err := c.Delete(ctx, created.Task.ID); err != nil {
		t.Errorf("delete: %v", err)
	}

	want := []string{
		"GET /api/v1/tasks/u1",
		"GET /api/v1/tasks/pending/u1",
		"GET /api/v1/tasks/completed/u1",
		"GET /api/v1/tasks/u1/category/Work",
		"GET /api/v1/tasks/search",
		"GET /api/v1/tasks/task/t-b",
		"POST /api/v1/tasks",
		"PUT /api/v1/tasks/" + created.Task.ID,
		"PUT /api/v1/tasks/status/" + created.Task.ID,
		"DELETE /api/v1/tasks/" + created.Task.ID,
	}
	if got := srv.Requests(); !reflect.DeepEqual(got, want) {
		t.Errorf("requests:\n got %v\nwant %v", got, want)
	}
}

func TestClient_ErrorsPassThrough(t *testing.T) {
	c, _ := newClient(t, testutil.TokenFor("u1"))
	ctx := context.Background()

	_, err := c.GetByID(ctx, "missing")
	if !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err.Error() != "Task not found" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestClient_UnauthenticatedTaskCall(t *testing.T) {
	c, _ := newClient(t, "")

	_, err := c.List(context.Background(), "u1")
	if !errors.Is(err, service.ErrAuth) {
		t.Fatalf("err = %v, want auth error", err)
	}
}

func TestClient_AuthRoutes(t *testing.T) {
	c, srv := newClient(t, "")
	ctx := context.Background()

	if _, err := c.SendOTP(ctx, "a@b.com"); err != nil {
		t.Fatalf("send otp: %v", err)
	}
	res, err := c.Signup(ctx, service.SignupInput{
		FirstName: "Ada", Email: "a@b.com", Password: "pw", ConfirmPassword: "pw",
		OTP: srv.Svc.PendingOTP("a@b.com"),
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if res.User == nil || res.Token == "" {
		t.Fatalf("signup result = %+v", res)
	}

	if _, err := c.Login(ctx, "a@b.com", "nope"); err == nil || err.Error() != "Invalid credentials" {
		t.Errorf("login err = %v, want Invalid credentials", err)
	}
	if res, err := c.Login(ctx, "a@b.com", "pw"); err != nil || res.Token != testutil.TokenFor(res.User.ID) {
		t.Errorf("login = %+v, %v", res, err)
	}
}
