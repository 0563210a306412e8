package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/dvloznov/finbot/internal/assistant"
	"github.com/dvloznov/finbot/internal/logger"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the finance assistant.

Commands:
  /new    start a new conversation
  /quit   exit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

var scanCmd = &cobra.Command{
	Use:   "scan <image>",
	Short: "Send a receipt image and record what the assistant finds",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

var scanCaption string

func init() {
	scanCmd.Flags().StringVarP(&scanCaption, "caption", "c", "", "Text sent with the image")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	e, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx = logger.WithContext(ctx, e.log)

	conv, err := e.services.NewConversation(ctx, e.userID)
	if err != nil {
		return err
	}
	r := newRenderer(cmd.OutOrStdout())

	r.banner(e.userID, conv.Summary(), e.services.Money)

	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		r.prompt()
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			conv.NewConversation()
			r.notice("New conversation started.")
			continue
		}

		r.exchange(conv.SendText(ctx, line))
		if ctx.Err() != nil {
			return nil
		}
	}
	return in.Err()
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	img, err := readImage(args[0])
	if err != nil {
		return err
	}

	e, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer e.Close()
	ctx = logger.WithContext(ctx, e.log)

	conv, err := e.services.NewConversation(ctx, e.userID)
	if err != nil {
		return err
	}

	ex := conv.SendImage(ctx, img, scanCaption)
	newRenderer(cmd.OutOrStdout()).exchange(ex)
	if ex.Failed {
		return fmt.Errorf("scan: %s", ex.Assistant.Text)
	}
	return nil
}

// readImage loads an image file and checks its type against the accepted set.
func readImage(path string) (assistant.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return assistant.Image{}, fmt.Errorf("reading %s: %w", path, err)
	}
	mimeType := http.DetectContentType(data)
	if _, ok := assistant.ImageExtension(mimeType); !ok {
		return assistant.Image{}, fmt.Errorf("%s: unsupported image type %s", path, mimeType)
	}
	return assistant.Image{Data: data, MIMEType: mimeType}, nil
}

