// SPDX-License-Identifier: GPL-3.0-or-later

// Command hushdns resolves hostnames using exclusively encrypted
// DNS transports (DoH, DoT, DoH3) and well-known public providers.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/fatih/color"
	"github.com/hushdns/hushdns"
	"github.com/hushdns/hushdns/dnswire"
	"github.com/pborman/getopt/v2"
)

var (
	flagECH      = false
	flagHelp     = false
	flagProtocol = "doh"
	flagProvider = "cloudflare"
	flagRace     = false
	flagShuffle  = false
	flagTypes    = []string{}
	flagVerbose  = false

	providerOpt getopt.Option
)

func init() {
	getopt.FlagLong(&flagECH, "ech", 0, "Also query the HTTPS record and print the ECH configuration")
	getopt.FlagLong(&flagHelp, "help", 'h', "Print this help message")
	getopt.FlagLong(&flagProtocol, "protocol", 'P', "Select the encrypted transport: doh, dot, or doh3", "NAME")
	providerOpt = getopt.FlagLong(&flagProvider, "provider", 'p', "Select the DNS provider by ID", "ID")
	getopt.FlagLong(&flagRace, "race", 0, "Race all capable providers and keep the first answer")
	getopt.FlagLong(&flagShuffle, "shuffle", 0, "Try capable providers sequentially in random order")
	getopt.FlagLong(&flagTypes, "type", 't', "Query the given record type (repeatable; default: A and AAAA)", "TYPE")
	getopt.FlagLong(&flagVerbose, "verbose", 'v', "Emit debug messages")
	getopt.SetParameters("HOSTNAME...")
}

// fatalf logs a configuration error and exits with a nonzero status
// without performing any network activity.
func fatalf(format string, v ...any) {
	log.Errorf(format, v...)
	os.Exit(2)
}

func main() {
	// 1. parse the command line and configure logging
	getopt.Parse()
	if flagHelp {
		getopt.Usage()
		os.Exit(0)
	}
	log.SetHandler(cli.New(os.Stderr))
	log.SetLevel(log.InfoLevel)
	if flagVerbose {
		log.SetLevel(log.DebugLevel)
	}

	// 2. validate the configuration before touching the network
	hostnames := getopt.Args()
	if len(hostnames) <= 0 {
		getopt.Usage()
		os.Exit(2)
	}
	if flagRace && flagShuffle {
		fatalf("--race and --shuffle are mutually exclusive")
	}
	if providerOpt.Seen() && (flagRace || flagShuffle) {
		fatalf("--provider selects a single provider and cannot be combined with --race or --shuffle")
	}
	proto, err := hushdns.ParseProtocol(flagProtocol)
	if err != nil {
		fatalf("%s", err.Error())
	}
	qtypes, err := parseTypes(flagTypes)
	if err != nil {
		fatalf("%s", err.Error())
	}
	strategy := hushdns.StrategySingle
	switch {
	case flagRace:
		strategy = hushdns.StrategyRace
	case flagShuffle:
		strategy = hushdns.StrategyShuffle
	}

	// 3. resolve all the hostnames
	start := time.Now()
	reso := hushdns.NewResolver()
	results, err := reso.Resolve(context.Background(), &hushdns.Request{
		Hostnames:  hostnames,
		Types:      qtypes,
		Protocol:   proto,
		Strategy:   strategy,
		ProviderID: flagProvider,
		ECH:        flagECH,
	})
	if err != nil {
		fatalf("%s", err.Error())
	}

	// 4. print the results and exit nonzero if any hostname failed
	failed := false
	for _, result := range results {
		printResult(result, flagECH)
		failed = failed || result.Err != nil
	}
	log.Debugf("resolved %d hostnames in %s", len(results),
		time.Since(start).Round(time.Millisecond))
	if failed {
		os.Exit(1)
	}
}

// parseTypes maps record type names from the command line to their
// [dnswire.Type] values.
func parseTypes(names []string) ([]dnswire.Type, error) {
	var qtypes []dnswire.Type
	for _, name := range names {
		qtype, err := dnswire.ParseType(name)
		if err != nil {
			return nil, err
		}
		qtypes = append(qtypes, qtype)
	}
	return qtypes, nil
}

// printResult prints the outcome of resolving a single hostname.
func printResult(result *hushdns.Result, wantECH bool) {
	if result.Err != nil {
		fmt.Printf("%s %s: %s\n", color.RedString("✗"), result.Hostname, result.Err.Error())
		return
	}
	fmt.Printf("%s %s (%s over %s, %s)\n", color.GreenString("✓"), result.Hostname,
		result.Provider.Name, result.Protocol, result.Duration.Round(time.Millisecond))
	for _, record := range result.Records {
		fmt.Printf("    %-5s %6d %s\n", record.Type, record.TTL, record.String())
	}
	if wantECH {
		printECH(result)
	}
}

// printECH prints the ECH configuration advertised by a hostname, or
// a marker noting the absence of one.
func printECH(result *hushdns.Result) {
	if result.ECH == nil || len(result.ECH.Configs) <= 0 {
		fmt.Printf("    %s no ECH configuration advertised\n", color.YellowString("○"))
		return
	}
	for _, config := range result.ECH.Configs {
		fmt.Printf("    %s ECH version 0x%04x id %d kem 0x%04x public name %s\n",
			color.GreenString("✓"), config.Version, config.ConfigID,
			config.KEMID, config.PublicName)
		fmt.Printf("      %s\n", config.Base64())
	}
	if result.ECH.Truncated {
		fmt.Printf("    %s ECH configuration list truncated\n", color.YellowString("○"))
	}
}
