// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/hushdns/hushdns/dnswire"
	"github.com/hushdns/hushdns/ech"
)

// Strategy selects how the [*Resolver] picks providers for each
// hostname it resolves.
type Strategy string

const (
	// StrategySingle queries a single, explicitly selected provider.
	StrategySingle = Strategy("single")

	// StrategyRace queries all capable providers concurrently and
	// keeps the first successful answer.
	StrategyRace = Strategy("race")

	// StrategyShuffle tries capable providers sequentially in random
	// order and stops at the first successful answer.
	StrategyShuffle = Strategy("shuffle")
)

// defaultTimeout bounds a single exchange with a provider.
const defaultTimeout = 10 * time.Second

// defaultProviderID is the provider used when a [Request] does not
// select one explicitly.
const defaultProviderID = "cloudflare"

// Request describes a batch of hostnames to resolve.
//
// The zero value is not valid: at least Hostnames must be set.
type Request struct {
	// Hostnames contains the MANDATORY hostnames to resolve.
	Hostnames []string

	// Types contains the OPTIONAL record types to query for each
	// hostname. An empty slice means A and AAAA.
	Types []dnswire.Type

	// Protocol is the OPTIONAL encrypted transport protocol to
	// use. An empty value means [ProtocolDoH].
	Protocol Protocol

	// Strategy is the OPTIONAL provider selection strategy. An
	// empty value means [StrategySingle].
	Strategy Strategy

	// ProviderID is the OPTIONAL provider used by [StrategySingle].
	// An empty value means the Cloudflare provider. The other
	// strategies select providers by capability and ignore it.
	ProviderID string

	// ECH indicates whether to additionally query HTTPS records
	// and extract the ECH configuration they advertise.
	ECH bool
}

// Result is the outcome of resolving a single hostname.
type Result struct {
	// Hostname is the hostname we attempted to resolve.
	Hostname string

	// Provider is the provider that produced the answer, or, on
	// failure with [StrategySingle], the provider we queried. It is
	// nil when every capable provider failed.
	Provider *Provider

	// Protocol is the protocol used for the exchange.
	Protocol Protocol

	// Records contains the answer records across all queried types.
	Records []dnswire.Record

	// ECH is the extracted ECH configuration list, or nil when not
	// requested or not advertised by the hostname.
	ECH *ech.ConfigList

	// Duration is the wall-clock time spent resolving the hostname.
	Duration time.Duration

	// Err is nil on success and an explanatory error otherwise.
	Err error
}

// Resolver resolves hostnames over encrypted DNS transports.
// Construct using [NewResolver].
//
// The resolver spawns one goroutine per hostname and returns results
// in the same order as the request's hostnames.
type Resolver struct {
	// Logger is the OPTIONAL logger to use.
	Logger log.Interface

	// Timeout is the OPTIONAL maximum duration of a single
	// exchange with a provider. Zero means ten seconds.
	Timeout time.Duration

	// newTransport constructs transports and is overridable
	// for testing.
	newTransport func(provider *Provider, proto Protocol) (Transport, error)

	// shuffle permutes provider indexes for [StrategyShuffle] and
	// is overridable for testing.
	shuffle func(n int, swap func(i, j int))

	// mu protects transports.
	mu sync.Mutex

	// transports caches transports across hostnames so that
	// pooled connections are actually reused.
	transports map[string]Transport
}

// NewResolver constructs a [*Resolver] with default settings.
func NewResolver() *Resolver {
	return &Resolver{
		Logger:       log.Log,
		Timeout:      defaultTimeout,
		newTransport: newTransport,
		shuffle:      rand.Shuffle,
		mu:           sync.Mutex{},
		transports:   make(map[string]Transport),
	}
}

// Resolve resolves all the hostnames in the request.
//
// The returned slice has one entry per hostname, in the same order
// as req.Hostnames, regardless of completion order. Per-hostname
// failures are reported through [Result.Err].
//
// Resolve itself fails only on configuration errors detected before
// any network activity, in which case the returned error wraps
// [ErrConfiguration].
func (r *Resolver) Resolve(ctx context.Context, req *Request) ([]*Result, error) {
	// 1. fill in the request defaults
	proto := req.Protocol
	if proto == "" {
		proto = ProtocolDoH
	}
	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategySingle
	}
	qtypes := req.Types
	if len(qtypes) <= 0 {
		qtypes = []dnswire.Type{dnswire.TypeA, dnswire.TypeAAAA}
	}

	// 2. select the candidate providers, failing early when the
	// configuration cannot possibly produce an answer
	providers, err := r.selectProviders(strategy, proto, req.ProviderID)
	if err != nil {
		return nil, err
	}

	// 3. resolve each hostname in its own goroutine, writing each
	// result at the hostname's position in the request
	results := make([]*Result, len(req.Hostnames))
	wg := &sync.WaitGroup{}
	for idx, hostname := range req.Hostnames {
		wg.Go(func() {
			results[idx] = r.resolveHost(ctx, &hostRequest{
				hostname:  hostname,
				providers: providers,
				proto:     proto,
				qtypes:    qtypes,
				strategy:  strategy,
				wantECH:   req.ECH,
			})
		})
	}

	// 4. wait for all the resolutions to complete
	wg.Wait()
	return results, nil
}

// selectProviders returns the providers to query for each hostname
// given the strategy, the protocol, and the optional provider ID.
func (r *Resolver) selectProviders(strategy Strategy, proto Protocol, providerID string) ([]*Provider, error) {
	switch strategy {
	case StrategySingle:
		if providerID == "" {
			providerID = defaultProviderID
		}
		provider, err := ProviderByID(providerID)
		if err != nil {
			return nil, err
		}
		if !provider.Supports(proto) {
			return nil, fmt.Errorf("%w: %s over %s", ErrProtocolNotSupported, provider.ID, proto)
		}
		return []*Provider{provider}, nil

	case StrategyRace, StrategyShuffle:
		providers := ProvidersSupporting(proto)
		if len(providers) <= 0 {
			return nil, fmt.Errorf("%w: no provider serves %s", ErrNoCapableProvider, proto)
		}
		return providers, nil

	default:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrConfiguration, strategy)
	}
}

// hostRequest is the fully-defaulted work item for resolving a
// single hostname.
type hostRequest struct {
	hostname  string
	providers []*Provider
	proto     Protocol
	qtypes    []dnswire.Type
	strategy  Strategy
	wantECH   bool
}

// resolveHost resolves a single hostname according to the strategy.
func (r *Resolver) resolveHost(ctx context.Context, hreq *hostRequest) *Result {
	start := time.Now()
	var result *Result
	switch hreq.strategy {
	case StrategyRace:
		result = r.resolveRace(ctx, hreq)
	case StrategyShuffle:
		result = r.resolveShuffle(ctx, hreq)
	default:
		result = r.attempt(ctx, hreq, hreq.providers[0])
	}
	result.Duration = time.Since(start)
	return result
}

// resolveRace queries all providers concurrently and keeps the first
// successful result, canceling the exchanges still in flight.
func (r *Resolver) resolveRace(ctx context.Context, hreq *hostRequest) *Result {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The channel is buffered so that losers never block.
	resultch := make(chan *Result, len(hreq.providers))
	for _, provider := range hreq.providers {
		go func() {
			resultch <- r.attempt(ctx, hreq, provider)
		}()
	}

	var (
		winner *Result
		errs   []error
	)
	for range hreq.providers {
		result := <-resultch
		if result.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Provider.ID, result.Err))
			continue
		}
		if winner == nil {
			winner = result
			cancel()
		}
	}
	if winner == nil {
		return &Result{
			Hostname: hreq.hostname,
			Protocol: hreq.proto,
			Err:      errors.Join(errs...),
		}
	}
	return winner
}

// resolveShuffle tries providers sequentially in random order and
// stops at the first success.
func (r *Resolver) resolveShuffle(ctx context.Context, hreq *hostRequest) *Result {
	providers := append([]*Provider{}, hreq.providers...)
	r.shuffle(len(providers), func(i, j int) {
		providers[i], providers[j] = providers[j], providers[i]
	})

	var errs []error
	for _, provider := range providers {
		result := r.attempt(ctx, hreq, provider)
		if result.Err == nil {
			return result
		}
		errs = append(errs, fmt.Errorf("%s: %w", provider.ID, result.Err))
	}
	return &Result{
		Hostname: hreq.hostname,
		Protocol: hreq.proto,
		Err:      errors.Join(errs...),
	}
}

// attempt performs the complete exchange with a single provider:
// one query per record type, plus the HTTPS query for ECH when
// requested.
func (r *Resolver) attempt(ctx context.Context, hreq *hostRequest, provider *Provider) *Result {
	result := &Result{
		Hostname: hreq.hostname,
		Provider: provider,
		Protocol: hreq.proto,
	}

	txp, err := r.transportFor(provider, hreq.proto)
	if err != nil {
		result.Err = err
		return result
	}

	// NODATA for one type is fine as long as another type answers,
	// e.g. an IPv4-only hostname has no AAAA records.
	for _, qtype := range hreq.qtypes {
		resp, err := r.exchange(ctx, txp, provider, hreq, qtype)
		if err != nil {
			if errors.Is(err, dnswire.ErrNoData) {
				continue
			}
			result.Err = err
			return result
		}
		result.Records = append(result.Records, resp.Answers...)
	}

	if hreq.wantECH {
		result.ECH, err = r.queryECH(ctx, txp, provider, hreq)
		if err != nil {
			result.Err = err
			return result
		}
	}

	if len(result.Records) <= 0 && result.ECH == nil {
		result.Err = dnswire.ErrNoData
	}
	return result
}

// exchange performs a single query honoring the resolver timeout.
func (r *Resolver) exchange(ctx context.Context, txp Transport,
	provider *Provider, hreq *hostRequest, qtype dnswire.Type) (*dnswire.Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := dnswire.NewQuery(hreq.hostname, qtype)
	r.Logger.Debugf("%s: querying %s for %s over %s",
		hreq.hostname, provider.ID, qtype, hreq.proto)
	resp, err := txp.Exchange(ctx, query)
	if err != nil {
		r.Logger.Debugf("%s: %s over %s failed: %s",
			hreq.hostname, provider.ID, hreq.proto, err.Error())
		return nil, err
	}
	return resp, nil
}

// queryECH queries the HTTPS record of the hostname and extracts the
// ECH configuration list it advertises, if any. A hostname without
// an ECH configuration is not an error.
func (r *Resolver) queryECH(ctx context.Context, txp Transport,
	provider *Provider, hreq *hostRequest) (*ech.ConfigList, error) {
	resp, err := r.exchange(ctx, txp, provider, hreq, dnswire.TypeHTTPS)
	if err != nil {
		// A name serving A records but no HTTPS record answers
		// NODATA, which for ECH just means "not advertised".
		if errors.Is(err, dnswire.ErrNoData) {
			return nil, nil
		}
		return nil, err
	}
	for _, record := range resp.Answers {
		configs, err := ech.ExtractList(&record)
		if err != nil {
			continue
		}
		return configs, nil
	}
	return nil, nil
}

// transportFor returns the cached transport for the given provider
// and protocol, constructing it on first use. Caching matters for
// protocols pooling connections across exchanges.
func (r *Resolver) transportFor(provider *Provider, proto Protocol) (Transport, error) {
	defer r.mu.Unlock()
	r.mu.Lock()
	key := provider.ID + "/" + string(proto)
	if txp := r.transports[key]; txp != nil {
		return txp, nil
	}
	txp, err := r.newTransport(provider, proto)
	if err != nil {
		return nil, err
	}
	r.transports[key] = txp
	return txp, nil
}
