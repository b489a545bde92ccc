package tools

import (
	"context"
	"errors"
	"strings"
	"testing"

	"segugio/internal/backend"
	"segugio/internal/schema"
)

type fakeBackend struct {
	createPayload map[string]any
	swapPayload   map[string]any
	wdPayload     map[string]any
	statsPayload  map[string]any
	result        backend.Result
}

func okResult(message string) backend.Result {
	return backend.Result{Status: backend.StatusOK, Data: backend.Data{Message: message}}
}

func (f *fakeBackend) Create(_ context.Context, payload any) backend.Result {
	f.createPayload = payload.(map[string]any)
	return f.result
}

func (f *fakeBackend) Swap(_ context.Context, payload any) backend.Result {
	f.swapPayload = payload.(map[string]any)
	return f.result
}

func (f *fakeBackend) Withdraw(_ context.Context, payload any) backend.Result {
	f.wdPayload = payload.(map[string]any)
	return f.result
}

func (f *fakeBackend) Stats(_ context.Context, payload any) backend.Result {
	f.statsPayload = payload.(map[string]any)
	return f.result
}

type fakeResolver struct {
	names map[string]string
	err   error
	calls int
}

func (f *fakeResolver) Resolve(_ context.Context, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.names[strings.ToLower(strings.TrimSpace(name))], nil
}

type fakeGroups struct {
	groupID string
	err     error
	calls   int
}

func (f *fakeGroups) CreateGroup(context.Context, string, string) (string, error) {
	f.calls++
	return f.groupID, f.err
}

type fakePrice struct {
	usd float64
	err error
}

func (f *fakePrice) ETHUSD(context.Context) (float64, error) { return f.usd, f.err }

type recordingChannel struct {
	sent []string
	err  error
}

func (c *recordingChannel) Send(_ context.Context, text string) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, text)
	return nil
}

func newTestDispatcher(t *testing.T, deps Deps) *Dispatcher {
	t.Helper()
	d := NewDispatcher(NopHooks{})
	if err := RegisterSegugioTools(d, deps); err != nil {
		t.Fatalf("register tools: %v", err)
	}
	return d
}

func testSession(ch Messenger) Session {
	return Session{UserAddress: "0xUser", BotAddress: "0xBot", Channel: ch}
}

func TestExecute_UnknownTool(t *testing.T) {
	d := newTestDispatcher(t, Deps{})
	_, err := d.Execute(context.Background(), testSession(nil), "rm_rf", nil)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Code != ErrCodeNotFound {
		t.Fatalf("expected not-found ToolError, got %v", err)
	}
}

func TestExecute_ValidationRejectedBeforeBackend(t *testing.T) {
	be := &fakeBackend{result: okResult("done")}
	d := newTestDispatcher(t, Deps{Backend: be})

	text, err := d.Execute(context.Background(), testSession(nil), schema.OpSellFromSegugio, map[string]any{
		"amount": "three",
	})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Code != ErrCodeValidation {
		t.Fatalf("expected validation ToolError, got %v", err)
	}
	if be.swapPayload != nil {
		t.Fatal("backend must not be called on validation failure")
	}
	if !strings.Contains(text, "amount") {
		t.Fatalf("rejection text should name the field, got %q", text)
	}
}

func TestCreateSegugio_DefaultsAndCorrelation(t *testing.T) {
	be := &fakeBackend{result: backend.Result{Status: backend.StatusOK, Data: backend.Data{Message: "segugio created"}}}
	groups := &fakeGroups{groupID: "g-42"}
	ch := &recordingChannel{}
	d := newTestDispatcher(t, Deps{Backend: be, Groups: groups, Resolver: &fakeResolver{}})

	text, err := d.Execute(context.Background(), testSession(ch), schema.OpCreateSegugio, map[string]any{
		"address": "0xTarget",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if text != "segugio created." {
		t.Fatalf("unexpected result text %q", text)
	}
	if groups.calls != 1 {
		t.Fatalf("expected one group provision, got %d", groups.calls)
	}

	p := be.createPayload
	if p["owner"] != "0xUser" {
		t.Fatalf("expected owner from session, got %v", p["owner"])
	}
	if p["addressToFollow"] != "0xTarget" {
		t.Fatalf("expected raw address fallback, got %v", p["addressToFollow"])
	}
	if p["timeRange"] != "1w" || p["onlyBuyTrades"] != true {
		t.Fatalf("expected documented defaults, got %v / %v", p["timeRange"], p["onlyBuyTrades"])
	}
	if p["defaultAmountIn"] != float64(1) || p["defaultTokenIn"] != "ETH" {
		t.Fatalf("expected amount/token defaults, got %v / %v", p["defaultAmountIn"], p["defaultTokenIn"])
	}
	if p["xmtpGroupId"] != "g-42" {
		t.Fatalf("expected group correlation id, got %v", p["xmtpGroupId"])
	}

	if len(ch.sent) != 2 {
		t.Fatalf("expected group link + funding prompt, got %d messages", len(ch.sent))
	}
	if !strings.Contains(ch.sent[0], "g-42") {
		t.Fatalf("group announcement should carry the id, got %q", ch.sent[0])
	}
	if !strings.Contains(ch.sent[1], "0xBot") {
		t.Fatalf("funding prompt should carry the bot wallet, got %q", ch.sent[1])
	}
}

func TestCreateSegugio_ProvisioningFailure(t *testing.T) {
	be := &fakeBackend{result: okResult("created")}
	groups := &fakeGroups{err: errors.New("transport down")}
	d := newTestDispatcher(t, Deps{Backend: be, Groups: groups, Resolver: &fakeResolver{}})

	text, err := d.Execute(context.Background(), testSession(nil), schema.OpCreateSegugio, map[string]any{
		"address": "0xTarget",
	})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Code != ErrCodeProvisioning {
		t.Fatalf("expected provisioning ToolError, got %v", err)
	}
	if text != msgCreateFailed {
		t.Fatalf("expected generic failure text, got %q", text)
	}
	if be.createPayload != nil {
		t.Fatal("backend must not be called when provisioning fails")
	}
}

func TestResolveTarget_ResolvedNameSupersedesRawAddress(t *testing.T) {
	be := &fakeBackend{result: okResult("sold")}
	resolver := &fakeResolver{names: map[string]string{"vitalik.eth": "0xResolved"}}
	d := newTestDispatcher(t, Deps{Backend: be, Resolver: resolver})

	if _, err := d.Execute(context.Background(), testSession(nil), schema.OpSellFromSegugio, map[string]any{
		"ensDomain": "vitalik.eth",
		"address":   "0xRaw",
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if be.swapPayload["target"] != "0xResolved" {
		t.Fatalf("expected resolved address to win, got %v", be.swapPayload["target"])
	}
}

func TestResolveTarget_RawAddressFallback(t *testing.T) {
	be := &fakeBackend{result: okResult("sold")}
	resolver := &fakeResolver{} // nothing registered
	d := newTestDispatcher(t, Deps{Backend: be, Resolver: resolver})

	if _, err := d.Execute(context.Background(), testSession(nil), schema.OpSellFromSegugio, map[string]any{
		"ensDomain": "nobody.eth",
		"address":   "0xRaw",
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if be.swapPayload["target"] != "0xRaw" {
		t.Fatalf("expected raw address fallback, got %v", be.swapPayload["target"])
	}
}

func TestResolveTarget_NoUsableAddressFailsBeforeBackend(t *testing.T) {
	be := &fakeBackend{result: okResult("sold")}
	resolver := &fakeResolver{}
	d := newTestDispatcher(t, Deps{Backend: be, Resolver: resolver})

	text, err := d.Execute(context.Background(), testSession(nil), schema.OpSellFromSegugio, map[string]any{
		"ensDomain": "nobody.eth",
	})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Code != ErrCodeResolution {
		t.Fatalf("expected resolution ToolError, got %v", err)
	}
	if text != msgNoTarget {
		t.Fatalf("unexpected text %q", text)
	}
	if be.swapPayload != nil {
		t.Fatal("backend must not be called without a usable address")
	}
}

func TestWithdraw_DefaultTokenOutIsUSDC(t *testing.T) {
	be := &fakeBackend{result: okResult("withdrawn")}
	d := newTestDispatcher(t, Deps{Backend: be, Resolver: &fakeResolver{}})

	if _, err := d.Execute(context.Background(), testSession(nil), schema.OpWithdraw, map[string]any{
		"address": "0xTarget",
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if be.wdPayload["tokenOut"] != "USDC" {
		t.Fatalf("expected withdraw default USDC, got %v", be.wdPayload["tokenOut"])
	}
	if be.wdPayload["amount"] != float64(1) {
		t.Fatalf("expected default amount 1, got %v", be.wdPayload["amount"])
	}
}

func TestCheckStats_FanOutPreservesOrder(t *testing.T) {
	be := &fakeBackend{result: okResult("line1\nline2\nline3")}
	ch := &recordingChannel{}
	d := newTestDispatcher(t, Deps{Backend: be, Resolver: &fakeResolver{}})

	text, err := d.Execute(context.Background(), testSession(ch), schema.OpCheckStats, map[string]any{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if text != "Successfully checked the stats of all your segugios." {
		t.Fatalf("unexpected aggregate text %q", text)
	}
	want := []string{"line1", "line2", "line3"}
	if len(ch.sent) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(ch.sent))
	}
	for i, line := range want {
		if ch.sent[i] != line {
			t.Fatalf("message %d = %q, want %q", i, ch.sent[i], line)
		}
	}
}

func TestCheckStats_BackendFailureIsGeneric(t *testing.T) {
	be := &fakeBackend{result: backend.Result{Status: backend.StatusError, Data: backend.Data{Message: "db exploded"}}}
	ch := &recordingChannel{}
	d := newTestDispatcher(t, Deps{Backend: be, Resolver: &fakeResolver{}})

	text, err := d.Execute(context.Background(), testSession(ch), schema.OpCheckStats, map[string]any{})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Code != ErrCodeBackend {
		t.Fatalf("expected backend ToolError, got %v", err)
	}
	if text != msgStatsFailed {
		t.Fatalf("expected generic text, got %q", text)
	}
	if strings.Contains(text, "db exploded") {
		t.Fatal("internal detail must not leak into the user text")
	}
	if len(ch.sent) != 0 {
		t.Fatal("no stats lines should be delivered on failure")
	}
}

func TestAddFunds_DefaultPrompt(t *testing.T) {
	d := newTestDispatcher(t, Deps{})

	text, err := d.Execute(context.Background(), testSession(nil), schema.OpAddFunds, map[string]any{
		"address": "0xBotWallet",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(text, "0xBotWallet") {
		t.Fatalf("prompt should carry the destination, got %q", text)
	}
	if !strings.Contains(text, "amount=0.05") || !strings.Contains(text, "token=ETH") {
		t.Fatalf("prompt should carry the defaults, got %q", text)
	}
}

func TestEthereumPrice_FormatsFixedPrecision(t *testing.T) {
	d := newTestDispatcher(t, Deps{Price: &fakePrice{usd: 2731.4}})

	text, err := d.Execute(context.Background(), testSession(nil), schema.OpEthereumPrice, nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if text != "The price of ETH is $2731.40." {
		t.Fatalf("unexpected price text %q", text)
	}
}

func TestEthereumPrice_FallbackOnFailure(t *testing.T) {
	d := newTestDispatcher(t, Deps{Price: &fakePrice{err: errors.New("rate limited")}})

	text, err := d.Execute(context.Background(), testSession(nil), schema.OpEthereumPrice, nil)
	if err == nil {
		t.Fatal("expected internal error to be reported")
	}
	if text != msgPriceFailed {
		t.Fatalf("expected fallback text, got %q", text)
	}
}

type countingHooks struct {
	starts []string
	errs   []string
}

func (h *countingHooks) ToolStart(tool string, _ map[string]any) { h.starts = append(h.starts, tool) }
func (h *countingHooks) ToolError(tool string, _ error)          { h.errs = append(h.errs, tool) }
func (h *countingHooks) AgentAction(string)                      {}

func TestHooks_FireOnStartAndError(t *testing.T) {
	hooks := &countingHooks{}
	d := NewDispatcher(hooks)
	if err := RegisterSegugioTools(d, Deps{Price: &fakePrice{err: errors.New("down")}}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _ = d.Execute(context.Background(), testSession(nil), schema.OpEthereumPrice, nil)
	if len(hooks.starts) != 1 || hooks.starts[0] != schema.OpEthereumPrice {
		t.Fatalf("expected tool-start event, got %v", hooks.starts)
	}
	if len(hooks.errs) != 1 {
		t.Fatalf("expected tool-error event, got %v", hooks.errs)
	}
}
