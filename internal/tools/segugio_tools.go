package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"segugio/internal/backend"
	"segugio/internal/schema"
)

const txpayURL = "https://txpay.vercel.app"

// User-facing failure texts. Internal detail goes to the log, never here.
const (
	msgCreateFailed   = "An error occurred while creating a segugio."
	msgSellFailed     = "An error occurred while selling from a segugio."
	msgWithdrawFailed = "An error occurred while withdrawing from a segugio."
	msgStatsFailed    = "There was an error while checking the stats of your segugios."
	msgPriceFailed    = "An error occurred while fetching the price of ETH."
	msgNoTarget       = "I need an address or a registered ENS name to follow."
)

// Backend is the slice of the trading backend the tools call.
type Backend interface {
	Create(ctx context.Context, payload any) backend.Result
	Swap(ctx context.Context, payload any) backend.Result
	Withdraw(ctx context.Context, payload any) backend.Result
	Stats(ctx context.Context, payload any) backend.Result
}

// Resolver maps an ENS name to an address; empty result means unregistered.
type Resolver interface {
	Resolve(ctx context.Context, name string) (string, error)
}

// GroupService provisions (or returns) the notification group for a pair.
type GroupService interface {
	CreateGroup(ctx context.Context, userAddr, botAddr string) (string, error)
}

// PriceSource returns the current ETH price in USD.
type PriceSource interface {
	ETHUSD(ctx context.Context) (float64, error)
}

// Deps are the collaborators of the segugio toolset, injected explicitly so
// concurrent sessions share nothing mutable.
type Deps struct {
	Backend  Backend
	Resolver Resolver
	Groups   GroupService
	Price    PriceSource
}

// RegisterSegugioTools wires the six operations into the dispatcher.
func RegisterSegugioTools(d *Dispatcher, deps Deps) error {
	entries := []struct {
		spec    Spec
		handler Handler
	}{
		{
			spec: Spec{
				Name:        schema.OpCreateSegugio,
				Description: "this tool is used to create a segugio to copy trade an user.",
				Schema:      schema.CreateSegugio(),
			},
			handler: deps.createSegugio,
		},
		{
			spec: Spec{
				Name:        schema.OpSellFromSegugio,
				Description: "this tool is used to swap an amount of a tokenOut for tokenIn after a segugio successfully copied a trade.",
				Schema:      schema.SellFromSegugio(),
			},
			handler: deps.sellFromSegugio,
		},
		{
			spec: Spec{
				Name:        schema.OpWithdraw,
				Description: "this tool is used to withdraw an amount of a tokenOut after a segugio successfully copied a trade.",
				Schema:      schema.WithdrawFromSegugio(),
			},
			handler: deps.withdrawFromSegugio,
		},
		{
			spec: Spec{
				Name:        schema.OpCheckStats,
				Description: "this tool is used to check the stats of all the segugio.",
				Schema:      schema.CheckStats(),
			},
			handler: deps.checkStats,
		},
		{
			spec: Spec{
				Name:        schema.OpAddFunds,
				Description: "this tool is used to add funds to the bot wallet.",
				Schema:      schema.AddFunds(),
			},
			handler: deps.addFunds,
		},
		{
			spec: Spec{
				Name:        schema.OpEthereumPrice,
				Description: "this tool is used to retrieve the price of ethereum (ETH).",
				Schema:      schema.EthereumPrice(),
			},
			handler: deps.ethereumPrice,
		},
	}
	for _, e := range entries {
		if err := d.Register(e.spec, e.handler); err != nil {
			return err
		}
	}
	return nil
}

// target is the outcome of identity resolution for one invocation.
type target struct {
	ensDomain string
	rawAddr   string
	resolved  string
	address   string
}

// resolveTarget applies the resolution policy: a resolved ENS name
// supersedes the raw address, the raw address is the fallback, and an
// explicit name that cannot be resolved fails when no raw address backs it.
func (d Deps) resolveTarget(ctx context.Context, tool string, args map[string]any) (target, error) {
	tgt := target{
		ensDomain: schema.String(args, schema.FieldENSDomain),
		rawAddr:   schema.String(args, schema.FieldAddress),
	}
	if tgt.ensDomain != "" && d.Resolver != nil {
		resolved, err := d.Resolver.Resolve(ctx, tgt.ensDomain)
		if err != nil {
			log.WithError(err).WithField("name", tgt.ensDomain).Warn("ens resolution failed")
		} else {
			tgt.resolved = resolved
		}
	}

	tgt.address = tgt.resolved
	if tgt.address == "" {
		tgt.address = tgt.rawAddr
	}
	if tgt.ensDomain != "" && tgt.address == "" {
		return tgt, &ToolError{Code: ErrCodeResolution, Tool: tool,
			Message: fmt.Sprintf("ens name %q did not resolve and no address was given", tgt.ensDomain)}
	}
	return tgt, nil
}

func (d Deps) createSegugio(ctx context.Context, inv Invocation) (string, error) {
	// The notification group comes first so the backend can correlate the
	// subscription with it.
	groupID, err := d.Groups.CreateGroup(ctx, inv.Session.UserAddress, inv.Session.BotAddress)
	if err != nil {
		return msgCreateFailed, wrapError(ErrCodeProvisioning, schema.OpCreateSegugio, err)
	}
	if err := inv.Session.Send(ctx, fmt.Sprintf(
		"✅ group created with bot & user enter here in group: https://converse.xyz/group/%s", groupID)); err != nil {
		log.WithError(err).Warn("failed to announce new group")
	}

	tgt, err := d.resolveTarget(ctx, schema.OpCreateSegugio, inv.Args)
	if err != nil {
		return msgNoTarget, err
	}
	if tgt.address == "" {
		return msgNoTarget, &ToolError{Code: ErrCodeResolution, Tool: schema.OpCreateSegugio, Message: "no target address"}
	}

	res := d.Backend.Create(ctx, map[string]any{
		"owner": inv.Session.UserAddress,
		"segugioToolParams": map[string]any{
			"label":             schema.String(inv.Args, schema.FieldLabel),
			"ensDomain":         tgt.ensDomain,
			"address":           tgt.rawAddr,
			"resolvedEnsDomain": tgt.resolved,
		},
		"addressToFollow": tgt.address,
		"timeRange":       schema.String(inv.Args, schema.FieldTimeRange),
		"onlyBuyTrades":   schema.Bool(inv.Args, schema.FieldOnlyBuyTrades),
		"defaultAmountIn": schema.Number(inv.Args, schema.FieldDefaultAmountIn),
		"defaultTokenIn":  schema.String(inv.Args, schema.FieldDefaultTokenIn),
		"xmtpGroupId":     groupID,
	})
	if !res.OK() {
		return msgCreateFailed, wrapError(ErrCodeBackend, schema.OpCreateSegugio, backendErr(res))
	}

	paymentURL := fmt.Sprintf("%s/?&amount=%s&token=%s&receiver=%s", txpayURL, "100", "ETH", inv.Session.BotAddress)
	if err := inv.Session.Send(ctx, fmt.Sprintf(
		"💰 Now you can add funds to the bot to start copying trades. Continue here: %s or sends funds manually to the bot wallet at %s",
		paymentURL, inv.Session.BotAddress)); err != nil {
		log.WithError(err).Warn("failed to send funding prompt")
	}

	return res.Data.Message + ".", nil
}

func (d Deps) sellFromSegugio(ctx context.Context, inv Invocation) (string, error) {
	tgt, err := d.resolveTarget(ctx, schema.OpSellFromSegugio, inv.Args)
	if err != nil {
		return msgNoTarget, err
	}
	if tgt.address == "" {
		return msgNoTarget, &ToolError{Code: ErrCodeResolution, Tool: schema.OpSellFromSegugio, Message: "no target address"}
	}

	res := d.Backend.Swap(ctx, map[string]any{
		"owner":    inv.Session.UserAddress,
		"tokenOut": schema.String(inv.Args, schema.FieldTokenOut),
		"tokenIn":  schema.String(inv.Args, schema.FieldTokenIn),
		"amount":   schema.Number(inv.Args, schema.FieldAmount),
		"target":   tgt.address,
	})
	if !res.OK() {
		return msgSellFailed, wrapError(ErrCodeBackend, schema.OpSellFromSegugio, backendErr(res))
	}
	return res.Data.Message + ".", nil
}

func (d Deps) withdrawFromSegugio(ctx context.Context, inv Invocation) (string, error) {
	tgt, err := d.resolveTarget(ctx, schema.OpWithdraw, inv.Args)
	if err != nil {
		return msgNoTarget, err
	}
	if tgt.address == "" {
		return msgNoTarget, &ToolError{Code: ErrCodeResolution, Tool: schema.OpWithdraw, Message: "no target address"}
	}

	res := d.Backend.Withdraw(ctx, map[string]any{
		"owner":    inv.Session.UserAddress,
		"target":   tgt.address,
		"amount":   schema.Number(inv.Args, schema.FieldAmount),
		"tokenOut": schema.String(inv.Args, schema.FieldTokenOut),
	})
	if !res.OK() {
		return msgWithdrawFailed, wrapError(ErrCodeBackend, schema.OpWithdraw, backendErr(res))
	}
	return res.Data.Message + ".", nil
}

func (d Deps) checkStats(ctx context.Context, inv Invocation) (string, error) {
	// Stats works across all segugios, so the target is optional; an
	// unresolvable explicit name still fails rather than silently widening
	// the query.
	tgt, err := d.resolveTarget(ctx, schema.OpCheckStats, inv.Args)
	if err != nil {
		return msgNoTarget, err
	}

	res := d.Backend.Stats(ctx, map[string]any{
		"owner":  inv.Session.UserAddress,
		"target": tgt.address,
	})
	if !res.OK() {
		return msgStatsFailed, wrapError(ErrCodeBackend, schema.OpCheckStats, backendErr(res))
	}

	// The backend packs one stat per line; each line is its own channel
	// message, in order.
	for _, line := range strings.Split(res.Data.Message, "\n") {
		if err := inv.Session.Send(ctx, line); err != nil {
			log.WithError(err).Warn("failed to deliver stats line")
			return msgStatsFailed, wrapError(ErrCodeDelivery, schema.OpCheckStats, err)
		}
	}
	return "Successfully checked the stats of all your segugios.", nil
}

func (d Deps) addFunds(_ context.Context, inv Invocation) (string, error) {
	address := schema.String(inv.Args, schema.FieldAddress)
	amount := schema.Number(inv.Args, schema.FieldAmount)
	token := schema.String(inv.Args, schema.FieldToken)

	paymentURL := fmt.Sprintf("%s/?&amount=%v&token=%s&receiver=%s", txpayURL, amount, token, address)
	return fmt.Sprintf(
		"Use this frame to add funds to the bot wallet or add funds to the bot wallet manually to %s. %s",
		address, paymentURL), nil
}

func (d Deps) ethereumPrice(ctx context.Context, inv Invocation) (string, error) {
	_ = inv
	usd, err := d.Price.ETHUSD(ctx)
	if err != nil {
		// The fallback text is the result; the price read never raises past
		// the tool boundary.
		return msgPriceFailed, wrapError(ErrCodePriceFetch, schema.OpEthereumPrice, err)
	}
	return fmt.Sprintf("The price of ETH is $%.2f.", usd), nil
}

func backendErr(res backend.Result) error {
	if res.Err != nil {
		return res.Err
	}
	if res.Data.Message != "" {
		return fmt.Errorf("backend status %q: %s", res.Status, res.Data.Message)
	}
	return errors.New("backend status " + res.Status)
}
