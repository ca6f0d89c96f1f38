package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestTaskResult(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"ok":    {nil, "ok"},
		"retry": {errors.New("smtp 421"), "retry"},
		"skip":  {fmt.Errorf("bad payload: %w", asynq.SkipRetry), "skip"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := taskResult(tc.err); got != tc.want {
				t.Fatalf("taskResult(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestAsynqMetricsMiddleware(t *testing.T) {
	handler := AsynqMetricsMiddleware()(asynq.HandlerFunc(func(context.Context, *asynq.Task) error {
		return errors.New("smtp down")
	}))

	before := testutil.ToFloat64(taskResultTotal.WithLabelValues("test:task", "retry"))
	if err := handler.ProcessTask(context.Background(), asynq.NewTask("test:task", nil)); err == nil {
		t.Fatalf("expected error to pass through")
	}
	after := testutil.ToFloat64(taskResultTotal.WithLabelValues("test:task", "retry"))
	if after-before != 1 {
		t.Fatalf("expected retry counter to grow by 1, got %v", after-before)
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	labels := []string{http.MethodGet, "/api/health", "200"}
	before := testutil.ToFloat64(requestTotal.WithLabelValues(labels...))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))
	after := testutil.ToFloat64(requestTotal.WithLabelValues(labels...))

	if after-before != 1 {
		t.Fatalf("expected request counter to grow by 1, got %v", after-before)
	}
}

func TestObserveStepFailure(t *testing.T) {
	before := testutil.ToFloat64(stepFailuresTotal.WithLabelValues("notify"))
	ObserveStepFailure("notify")
	if got := testutil.ToFloat64(stepFailuresTotal.WithLabelValues("notify")) - before; got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}
