// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/AleutianAI/Switchboard/services/switchboard/datatypes"
)

var (
	rootCmd = &cobra.Command{
		Use:   "switchboard",
		Short: "A CLI to talk to and operate the Switchboard gateway",
		Long: `Switchboard routes support-chat messages through guardrails to
knowledge, support, and human-escalation agents. This CLI sends messages to
a running gateway and exposes its operator endpoints.`,
	}

	chatCmd = &cobra.Command{
		Use:   "chat [message]",
		Short: "Send a message through the full routing pipeline",
		Long:  `Sends a message to POST /v1/chat and prints the selected agent's answer, citations, and routing metadata.`,
		Args:  cobra.MinimumNArgs(1),
		Run:   runChatCommand,
	}
	chatUserID string

	routeCmd = &cobra.Command{
		Use:   "route [message]",
		Short: "Classify a message without executing an agent",
		Args:  cobra.MinimumNArgs(1),
		Run:   runRouteCommand,
	}

	diagnoseCmd = &cobra.Command{
		Use:   "diagnose [text]",
		Short: "Run the guardrail detectors against a text and print every finding",
		Args:  cobra.MinimumNArgs(1),
		Run:   runDiagnoseCommand,
	}

	ticketCmd = &cobra.Command{
		Use:   "ticket [ticket-id]",
		Short: "Look up the public view of a support ticket",
		Args:  cobra.ExactArgs(1),
		Run:   runTicketCommand,
	}

	indexCmd = &cobra.Command{
		Use:   "index",
		Short: "Operate the document index",
	}
	indexStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print index size and service counters",
		Run:   runIndexStatsCommand,
	}
	indexReloadCmd = &cobra.Command{
		Use:   "reload",
		Short: "Reload the index and the FAQ dataset from disk",
		Run:   runIndexReloadCommand,
	}
)

func init() {
	rootCmd.PersistentFlags().String("gateway", "http://localhost:8080", "Base URL of the running gateway")
	_ = viper.BindPFlag("gateway", rootCmd.PersistentFlags().Lookup("gateway"))
	_ = viper.BindEnv("gateway", "SWITCHBOARD_GATEWAY_URL")

	chatCmd.Flags().StringVar(&chatUserID, "user", "", "Stable user id for handoff and history tracking")

	indexCmd.AddCommand(indexStatsCmd, indexReloadCmd)
	rootCmd.AddCommand(chatCmd, routeCmd, diagnoseCmd, ticketCmd, indexCmd)
}

func gatewayURL(path string) string {
	return strings.TrimRight(viper.GetString("gateway"), "/") + path
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}

func postJSON(path string, body any) ([]byte, int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	resp, err := httpClient().Post(gatewayURL(path), "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

func getJSON(path string) ([]byte, int, error) {
	resp, err := httpClient().Get(gatewayURL(path))
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp.StatusCode, err
}

func runChatCommand(cmd *cobra.Command, args []string) {
	message := strings.Join(args, " ")
	body := datatypes.ChatRequest{Message: message, UserID: chatUserID}

	data, status, err := postJSON("/v1/chat", body)
	if err != nil {
		log.Fatalf("Error contacting gateway: %v", err)
	}
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Gateway returned %d:\n%s\n", status, data)
		os.Exit(1)
	}

	var chatResp datatypes.ChatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		log.Fatalf("Error parsing response: %v", err)
	}

	fmt.Printf("[%s via %s]\n\n%s\n", chatResp.Response.Agent, chatResp.Routing.Route, chatResp.Response.Content)
	if len(chatResp.Response.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, citation := range chatResp.Response.Citations {
			fmt.Printf("  - %s (%s)\n", citation.Title, citation.URL)
		}
	}
	if chatResp.Response.Meta.HandoffStatus != "" {
		fmt.Printf("\nHandoff: %s", chatResp.Response.Meta.HandoffStatus)
		if chatResp.Response.Meta.HandoffToken != "" {
			fmt.Printf(" (token %s)", chatResp.Response.Meta.HandoffToken)
		}
		fmt.Println()
	}
	fmt.Printf("\nCorrelation: %s  Latency: %.1fms\n", chatResp.CorrelationID, chatResp.Response.Meta.DurationMS)
}

func runRouteCommand(cmd *cobra.Command, args []string) {
	message := strings.Join(args, " ")
	data, status, err := postJSON("/v1/route", datatypes.ChatRequest{Message: message})
	if err != nil {
		log.Fatalf("Error contacting gateway: %v", err)
	}
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Gateway returned %d:\n%s\n", status, data)
		os.Exit(1)
	}
	printJSON(data)
}

func runDiagnoseCommand(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	data, status, err := getJSON("/v1/guardrails/diagnostics?query=" + url.QueryEscape(query))
	if err != nil {
		log.Fatalf("Error contacting gateway: %v", err)
	}
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Gateway returned %d:\n%s\n", status, data)
		os.Exit(1)
	}
	printJSON(data)
}

func runTicketCommand(cmd *cobra.Command, args []string) {
	data, status, err := getJSON("/v1/support/tickets/" + url.PathEscape(args[0]))
	if err != nil {
		log.Fatalf("Error contacting gateway: %v", err)
	}
	if status == http.StatusNotFound {
		fmt.Println("Ticket not found.")
		os.Exit(1)
	}
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Gateway returned %d:\n%s\n", status, data)
		os.Exit(1)
	}
	printJSON(data)
}

func runIndexStatsCommand(cmd *cobra.Command, args []string) {
	data, status, err := getJSON("/v1/index/stats")
	if err != nil {
		log.Fatalf("Error contacting gateway: %v", err)
	}
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Gateway returned %d:\n%s\n", status, data)
		os.Exit(1)
	}
	printJSON(data)
}

func runIndexReloadCommand(cmd *cobra.Command, args []string) {
	data, status, err := postJSON("/v1/index/reload", struct{}{})
	if err != nil {
		log.Fatalf("Error contacting gateway: %v", err)
	}
	if status != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Gateway returned %d:\n%s\n", status, data)
		os.Exit(1)
	}
	printJSON(data)
}

func printJSON(data []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(pretty.String())
}
