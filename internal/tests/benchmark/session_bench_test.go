package benchmark

import (
	"context"
	"testing"

	"github.com/yndnr/nocsrf-go/internal/core/service"
)

func BenchmarkSessionStartNew(b *testing.B) {
	runMatrix(b, func(b *testing.B, svc *service.SessionService, _ []string) {
		ctx := context.Background()
		req := &service.StartSessionRequest{ClientIP: "192.0.2.1"}
		for i := 0; i < b.N; i++ {
			resp, err := svc.Start(ctx, req)
			if err != nil {
				b.Fatalf("Start() error = %v", err)
			}
			if !resp.Created {
				b.Fatal("Start() resumed, want new session")
			}
		}
	})
}

func BenchmarkSessionResumeAndTouch(b *testing.B) {
	runMatrix(b, func(b *testing.B, svc *service.SessionService, ids []string) {
		ctx := context.Background()
		for i := 0; i < b.N; i++ {
			id := ids[i%len(ids)]
			if _, err := svc.Start(ctx, &service.StartSessionRequest{SessionID: id}); err != nil {
				b.Fatalf("Start() error = %v", err)
			}
			if _, err := svc.Touch(ctx, id, "192.0.2.1"); err != nil {
				b.Fatalf("Touch() error = %v", err)
			}
		}
	})
}

func BenchmarkSessionSetVariableParallel(b *testing.B) {
	runMatrix(b, func(b *testing.B, svc *service.SessionService, ids []string) {
		ctx := context.Background()
		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				id := ids[i%len(ids)]
				if _, err := svc.SetVariable(ctx, id, "counter", "x"); err != nil {
					b.Errorf("SetVariable() error = %v", err)
					return
				}
				i++
			}
		})
	})
}
