package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Render hooks
	r := NoopRenderHooks{}
	r.OnRenderStart(ctx, "debug", 4, 8, 5)
	r.OnRenderComplete(ctx, "debug", time.Second, nil)
	r.OnStyleLoad(ctx, "style.json", time.Millisecond, nil)

	// Pool hooks
	p := NoopPoolHooks{}
	p.OnWorkerSpawn(ctx, 4321)
	p.OnWorkerExit(ctx, 4321, nil)
	p.OnRequestDispatched(ctx, 1, 4321)
	p.OnRequestCompleted(ctx, 1, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "file")
	c.OnCacheMiss(ctx, "redis")
	c.OnCacheSet(ctx, "file", 1024)

	// Server hooks
	s := NoopServerHooks{}
	s.OnTileServed(ctx, 4, 8, 5, 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Render() should return NoopRenderHooks by default")
	}
	if _, ok := Pool().(NoopPoolHooks); !ok {
		t.Error("Pool() should return NoopPoolHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := Server().(NoopServerHooks); !ok {
		t.Error("Server() should return NoopServerHooks by default")
	}

	// Set custom hooks
	customRender := &testRenderHooks{}
	SetRenderHooks(customRender)
	if Render() != customRender {
		t.Error("SetRenderHooks should set custom hooks")
	}

	customPool := &testPoolHooks{}
	SetPoolHooks(customPool)
	if Pool() != customPool {
		t.Error("SetPoolHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customServer := &testServerHooks{}
	SetServerHooks(customServer)
	if Server() != customServer {
		t.Error("SetServerHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Render().(NoopRenderHooks); !ok {
		t.Error("Reset() should restore NoopRenderHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testRenderHooks{}
	SetRenderHooks(custom)

	// Setting nil should be ignored
	SetRenderHooks(nil)

	if Render() != custom {
		t.Error("SetRenderHooks(nil) should be ignored")
	}

	Reset()
}

// Test implementations
type testRenderHooks struct{ NoopRenderHooks }
type testPoolHooks struct{ NoopPoolHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testServerHooks struct{ NoopServerHooks }
