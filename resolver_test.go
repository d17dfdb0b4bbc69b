// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hushdns/hushdns/dnswire"
	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transportStub adapts a function to [Transport].
type transportStub struct {
	exchange func(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error)
}

func (ts *transportStub) Exchange(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error) {
	return ts.exchange(ctx, query)
}

// exchangeFunc is the signature of a stubbed per-provider exchange.
type exchangeFunc func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error)

// newStubResolver creates a resolver whose transports invoke the
// given exchange function instead of touching the network.
func newStubResolver(exchange exchangeFunc) *Resolver {
	reso := NewResolver()
	reso.newTransport = func(provider *Provider, proto Protocol) (Transport, error) {
		if !provider.Supports(proto) {
			return nil, fmt.Errorf("%w: %s over %s", ErrProtocolNotSupported, provider.ID, proto)
		}
		return &transportStub{
			exchange: func(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error) {
				return exchange(ctx, provider, query)
			},
		}, nil
	}
	return reso
}

// stubResponse builds a validated response for the query carrying
// the given A records, using an independent encoder for the reply.
func stubResponse(t *testing.T, query *dnswire.Query, addrs ...string) *dnswire.Response {
	t.Helper()
	rawQuery, err := query.Encode()
	require.NoError(t, err)
	msg, err := dnswire.ParseMessage(buildRawReply(t, rawQuery, dns.RcodeSuccess, addrs...))
	require.NoError(t, err)
	resp, err := dnswire.ParseResponse(query, msg)
	require.NoError(t, err)
	return resp
}

// answerForType replies with an A record to A queries and NODATA to
// everything else, like a provider would for an IPv4-only hostname.
func answerForType(t *testing.T, addr string) exchangeFunc {
	return func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		if query.Type != dnswire.TypeA {
			return nil, dnswire.ErrNoData
		}
		return stubResponse(t, query, addr), nil
	}
}

func TestResolverResolveSingle(t *testing.T) {
	var (
		mu    sync.Mutex
		types []dnswire.Type
	)
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		mu.Lock()
		types = append(types, query.Type)
		mu.Unlock()
		assert.Equal(t, "cloudflare", provider.ID)
		if query.Type != dnswire.TypeA {
			return nil, dnswire.ErrNoData
		}
		return stubResponse(t, query, "93.184.216.34"), nil
	})

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	result := results[0]
	require.NoError(t, result.Err)
	assert.Equal(t, "example.com", result.Hostname)
	assert.Equal(t, "cloudflare", result.Provider.ID)
	assert.Equal(t, ProtocolDoH, result.Protocol)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "93.184.216.34", result.Records[0].String())
	assert.Greater(t, result.Duration, time.Duration(0))

	// without explicit types the resolver queries A and AAAA
	assert.Equal(t, []dnswire.Type{dnswire.TypeA, dnswire.TypeAAAA}, types)
}

func TestResolverResolveExplicitTypes(t *testing.T) {
	var (
		mu    sync.Mutex
		types []dnswire.Type
	)
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		mu.Lock()
		types = append(types, query.Type)
		mu.Unlock()
		return stubResponse(t, query, "93.184.216.34"), nil
	})

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
		Types:     []dnswire.Type{dnswire.TypeTXT},
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)
	assert.Equal(t, []dnswire.Type{dnswire.TypeTXT}, types)
}

func TestResolverResolveOrderPreserved(t *testing.T) {
	hostnames := []string{"slow.example.com", "medium.example.com", "fast.example.com"}
	delays := map[string]time.Duration{
		"slow.example.com":   30 * time.Millisecond,
		"medium.example.com": 15 * time.Millisecond,
		"fast.example.com":   0,
	}

	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		time.Sleep(delays[query.Name])
		if query.Type != dnswire.TypeA {
			return nil, dnswire.ErrNoData
		}
		return stubResponse(t, query, "93.184.216.34"), nil
	})

	results, err := reso.Resolve(context.Background(), &Request{Hostnames: hostnames})
	require.NoError(t, err)
	require.Len(t, results, len(hostnames))

	// results come back at the hostname's input position even though
	// the hostnames complete in the opposite order
	for idx, hostname := range hostnames {
		assert.Equal(t, hostname, results[idx].Hostname)
		assert.NoError(t, results[idx].Err)
	}
}

func TestResolverResolveRace(t *testing.T) {
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		if provider.ID != "google" {
			// everybody else hangs until the winner cancels them
			<-ctx.Done()
			return nil, errors.Join(ErrTransport, ctx.Err())
		}
		if query.Type != dnswire.TypeA {
			return nil, dnswire.ErrNoData
		}
		return stubResponse(t, query, "8.8.8.8"), nil
	})

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
		Strategy:  StrategyRace,
	})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	assert.Equal(t, "google", result.Provider.ID)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "8.8.8.8", result.Records[0].String())
}

func TestResolverResolveRaceAllFail(t *testing.T) {
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		return nil, fmt.Errorf("%w: %s unreachable", ErrTransport, provider.ID)
	})

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
		Strategy:  StrategyRace,
	})
	require.NoError(t, err)

	result := results[0]
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, ErrTransport)
	assert.Nil(t, result.Provider)
	// the joined error names every provider that failed
	for _, provider := range ProvidersSupporting(ProtocolDoH) {
		assert.ErrorContains(t, result.Err, provider.ID)
	}
}

func TestResolverResolveRaceSkipsIncapableProvider(t *testing.T) {
	var (
		mu        sync.Mutex
		attempted []string
	)
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		mu.Lock()
		attempted = append(attempted, provider.ID)
		mu.Unlock()
		if query.Type != dnswire.TypeA {
			return nil, dnswire.ErrNoData
		}
		return stubResponse(t, query, "93.184.216.34"), nil
	})

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
		Protocol:  ProtocolDoH3,
		Strategy:  StrategyRace,
	})
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	assert.NotContains(t, attempted, "quad9")
}

func TestResolverResolveShuffle(t *testing.T) {
	var (
		mu        sync.Mutex
		attempted []string
	)
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		mu.Lock()
		attempted = append(attempted, provider.ID)
		mu.Unlock()
		if provider.ID == "nextdns" {
			return nil, fmt.Errorf("%w: nextdns unreachable", ErrTransport)
		}
		if query.Type != dnswire.TypeA {
			return nil, dnswire.ErrNoData
		}
		return stubResponse(t, query, "9.9.9.9"), nil
	})

	// reverse the provider order so the first candidate fails and
	// the second succeeds deterministically
	reso.shuffle = func(n int, swap func(i, j int)) {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			swap(i, j)
		}
	}

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
		Strategy:  StrategyShuffle,
	})
	require.NoError(t, err)

	result := results[0]
	require.NoError(t, result.Err)
	assert.Equal(t, "quad9", result.Provider.ID)
	// one failed attempt against nextdns, then both quad9 queries
	assert.Equal(t, []string{"nextdns", "quad9", "quad9"}, attempted)
}

func TestResolverResolveShuffleAllFail(t *testing.T) {
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		return nil, fmt.Errorf("%w: %s unreachable", ErrTransport, provider.ID)
	})

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
		Strategy:  StrategyShuffle,
	})
	require.NoError(t, err)

	result := results[0]
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, ErrTransport)
	assert.Nil(t, result.Provider)
}

func TestResolverResolveConfigurationErrors(t *testing.T) {

	type testCase struct {
		// name is the subtest name.
		name string

		// req is the misconfigured request.
		req *Request

		// wantErr is the specific configuration error.
		wantErr error
	}

	tests := []testCase{
		{
			name: "unknown provider",
			req: &Request{
				Hostnames:  []string{"example.com"},
				ProviderID: "bogus",
			},
			wantErr: ErrNoSuchProvider,
		},

		{
			name: "provider lacks protocol",
			req: &Request{
				Hostnames:  []string{"example.com"},
				ProviderID: "quad9",
				Protocol:   ProtocolDoH3,
			},
			wantErr: ErrProtocolNotSupported,
		},

		{
			name: "unknown protocol",
			req: &Request{
				Hostnames: []string{"example.com"},
				Protocol:  Protocol("udp"),
			},
			wantErr: ErrProtocolNotSupported,
		},

		{
			name: "unknown strategy",
			req: &Request{
				Hostnames: []string{"example.com"},
				Strategy:  Strategy("bogus"),
			},
			wantErr: ErrConfiguration,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
				t.Fatal("the network must not be touched")
				return nil, nil
			})

			results, err := reso.Resolve(context.Background(), tc.req)
			require.ErrorIs(t, err, tc.wantErr)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Nil(t, results)
		})
	}
}

func TestResolverResolveTimeout(t *testing.T) {
	reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	reso.Timeout = 20 * time.Millisecond

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"example.com"},
	})
	require.NoError(t, err)
	require.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
}

// stubHTTPSResponse builds a validated response to an HTTPS query
// whose answer advertises the given serialized ECHConfigList.
func stubHTTPSResponse(t *testing.T, query *dnswire.Query, echList []byte) *dnswire.Response {
	t.Helper()
	rawQuery, err := query.Encode()
	require.NoError(t, err)
	queryMsg := new(dns.Msg)
	require.NoError(t, queryMsg.Unpack(rawQuery))

	reply := new(dns.Msg)
	reply.SetReply(queryMsg)
	reply.Answer = append(reply.Answer, &dns.HTTPS{
		SVCB: dns.SVCB{
			Hdr: dns.RR_Header{
				Name:   queryMsg.Question[0].Name,
				Rrtype: dns.TypeHTTPS,
				Class:  dns.ClassINET,
				Ttl:    60,
			},
			Priority: 1,
			Target:   ".",
			Value:    []dns.SVCBKeyValue{&dns.SVCBECHConfig{ECH: echList}},
		},
	})
	rawReply, err := reply.Pack()
	require.NoError(t, err)

	msg, err := dnswire.ParseMessage(rawReply)
	require.NoError(t, err)
	resp, err := dnswire.ParseResponse(query, msg)
	require.NoError(t, err)
	return resp
}

// testECHList serializes a minimal draft-13 ECHConfigList with the
// given public name.
func testECHList(publicName string) []byte {
	var contents []byte
	contents = append(contents, 7)                // config_id
	contents = append(contents, 0x00, 0x20)       // kem_id
	contents = append(contents, 0x00, 0x01, 0xaa) // public_key
	contents = append(contents, 0x00, 0x04)       // cipher_suites length
	contents = append(contents, 0, 1, 0, 1)       // one KDF/AEAD pair
	contents = append(contents, 64)               // maximum_name_length
	contents = append(contents, byte(len(publicName)))
	contents = append(contents, publicName...)

	var entry []byte
	entry = append(entry, 0xfe, 0x0d)
	entry = append(entry, byte(len(contents)>>8), byte(len(contents)))
	entry = append(entry, contents...)

	var list []byte
	list = append(list, byte(len(entry)>>8), byte(len(entry)))
	list = append(list, entry...)
	return list
}

func TestResolverResolveECH(t *testing.T) {
	t.Run("hostname advertising ECH", func(t *testing.T) {
		reso := newStubResolver(func(ctx context.Context, provider *Provider, query *dnswire.Query) (*dnswire.Response, error) {
			switch query.Type {
			case dnswire.TypeA:
				return stubResponse(t, query, "93.184.216.34"), nil
			case dnswire.TypeHTTPS:
				return stubHTTPSResponse(t, query, testECHList("ech.example.net")), nil
			default:
				return nil, dnswire.ErrNoData
			}
		})

		results, err := reso.Resolve(context.Background(), &Request{
			Hostnames: []string{"example.com"},
			ECH:       true,
		})
		require.NoError(t, err)

		result := results[0]
		require.NoError(t, result.Err)
		require.NotNil(t, result.ECH)
		require.Len(t, result.ECH.Configs, 1)
		assert.Equal(t, uint16(0xfe0d), result.ECH.Configs[0].Version)
		assert.Equal(t, "ech.example.net", result.ECH.Configs[0].PublicName)
	})

	t.Run("hostname without an HTTPS record", func(t *testing.T) {
		reso := newStubResolver(answerForType(t, "93.184.216.34"))

		results, err := reso.Resolve(context.Background(), &Request{
			Hostnames: []string{"example.com"},
			ECH:       true,
		})
		require.NoError(t, err)

		result := results[0]
		require.NoError(t, result.Err)
		assert.Nil(t, result.ECH)
		assert.NotEmpty(t, result.Records)
	})
}

func TestResolverTransportCaching(t *testing.T) {
	var (
		mu      sync.Mutex
		created int
	)
	reso := newStubResolver(answerForType(t, "93.184.216.34"))
	inner := reso.newTransport
	reso.newTransport = func(provider *Provider, proto Protocol) (Transport, error) {
		mu.Lock()
		created++
		mu.Unlock()
		return inner(provider, proto)
	}

	results, err := reso.Resolve(context.Background(), &Request{
		Hostnames: []string{"a.example.com", "b.example.com", "c.example.com"},
	})
	require.NoError(t, err)
	for _, result := range results {
		require.NoError(t, result.Err)
	}

	// one provider and one protocol means a single cached transport
	// shared by all the hostnames
	assert.Equal(t, 1, created)
}
