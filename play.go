/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/Seednode/reveal/docstore"
	"github.com/Seednode/reveal/prompt"
	"github.com/Seednode/reveal/session"
)

const helpText = `Commands:
  /roll    roll the die and start a new round
  /retry   repeat the last failed roll or answer
  /status  show the room again
  /quit    leave the room
Anything else is sent as your answer while a question is open.`

type opKind int

const (
	opRoll opKind = iota
	opSubmit
)

type opResult struct {
	kind  opKind
	round session.Round
	err   error
}

type game struct {
	cfg     *Config
	out     io.Writer
	key     string
	role    session.Role
	view    *session.View
	rounds  *session.RoundController
	answers *session.AnswerController
	results chan opResult

	// rolling is set from roll until its result is finished, so a second
	// /roll typed before the first one starts is refused.
	rolling bool

	// draft is the last answer that has not been confirmed written, and
	// draftRound the round it answers.
	draft      string
	draftRound roundID
	retry      func(ctx context.Context)
	shown      string
}

// roundID tells rounds apart from what the local partner was asked.
type roundID struct {
	roll     int
	question string
}

func roundOf(doc *session.Document, role session.Role) roundID {
	if doc == nil {
		return roundID{}
	}
	return roundID{roll: doc.DiceRoll, question: doc.QuestionFor(role)}
}

// Play joins a room and runs the client event loop until the user quits,
// input ends, or ctx is cancelled.
func Play(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	key, err := playRoomKey(cfg)
	if err != nil {
		return err
	}

	store, err := docstore.NewRemote(cfg.server)
	if err != nil {
		return err
	}
	defer store.Close()

	lines := readLines(ctx, in)

	role, err := chooseRole(ctx, cfg, lines, out)
	if err != nil {
		return err
	}

	view, err := session.Watch(ctx, store, key)
	if err != nil {
		return err
	}
	defer view.Close()

	logf(cfg, "ROOMS: Joined %s as partner %s", key, role)

	fmt.Fprintf(out, "Room %s, playing as partner %s. Share the code with your partner.\n", key, role)
	if cfg.qr {
		if err := printQR(out, cfg.roomURL(key)); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, helpText)

	source := prompt.NewHTTP(cfg.promptsURL(), cfg.promptTimeout, logger(cfg))

	g := &game{
		cfg:     cfg,
		out:     out,
		key:     key,
		role:    role,
		view:    view,
		rounds:  session.NewRoundController(store, source),
		answers: session.NewAnswerController(store),
		results: make(chan opResult, 1),
	}

	return g.run(ctx, lines)
}

func playRoomKey(cfg *Config) (string, error) {
	if cfg.room == "" {
		return session.NewRoomKey()
	}
	return session.NormalizeRoomKey(cfg.room)
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	return lines
}

func chooseRole(ctx context.Context, cfg *Config, lines <-chan string, out io.Writer) (session.Role, error) {
	if cfg.role != "" {
		return session.ParseRole(cfg.role)
	}

	for {
		fmt.Fprint(out, "Play as partner A or B? Your partner takes the other one. ")

		select {
		case <-ctx.Done():
			return session.RoleNone, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return session.RoleNone, session.ErrNoRole
			}

			role, err := session.ParseRole(line)
			if err == nil {
				return role, nil
			}
			fmt.Fprintln(out, "Please answer A or B.")
		}
	}
}

func (g *game) run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case doc := <-g.view.Snapshots():
			g.render(&doc)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if g.command(ctx, strings.TrimSpace(line)) {
				return nil
			}
		case res := <-g.results:
			g.finish(ctx, res)
		}
	}
}

// command handles one line of input and reports whether to leave.
func (g *game) command(ctx context.Context, line string) bool {
	switch strings.ToLower(line) {
	case "":
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(g.out, helpText)
	case "/status":
		g.shown = ""
		g.render(g.view.Latest())
	case "/roll":
		g.roll(ctx)
	case "/retry":
		if g.retry == nil {
			fmt.Fprintln(g.out, "Nothing to retry.")
			break
		}
		retry := g.retry
		g.retry = nil
		retry(ctx)
	default:
		g.answer(ctx, line)
	}

	return false
}

func (g *game) roll(ctx context.Context) {
	if g.rolling || g.rounds.Busy() {
		fmt.Fprintln(g.out, "Already rolling...")
		return
	}

	g.rolling = true
	fmt.Fprintln(g.out, "Rolling...")

	go func() {
		opCtx, cancel := context.WithTimeout(ctx, g.cfg.promptTimeout+timeout)
		defer cancel()

		round, err := g.rounds.Roll(opCtx, g.key)
		g.report(ctx, opResult{kind: opRoll, round: round, err: err})
	}()
}

func (g *game) answer(ctx context.Context, text string) {
	switch g.view.Phase(g.role) {
	case session.Answering:
	case session.WaitingForPartner:
		fmt.Fprintln(g.out, "You already answered. Waiting for your partner...")
		return
	case session.Revealed, session.NoRoundYet:
		fmt.Fprintln(g.out, "No question is open. Type /roll to start a round.")
		return
	default:
		fmt.Fprintln(g.out, "Still loading the room...")
		return
	}

	g.hold(text)
	g.submit(ctx)
}

func (g *game) hold(text string) {
	g.draft = text
	g.draftRound = roundOf(g.view.Latest(), g.role)
}

func (g *game) dropDraft() {
	g.draft = ""
	g.draftRound = roundID{}
}

func (g *game) submit(ctx context.Context) {
	snapshot := g.view.Latest()
	text := g.draft

	go func() {
		opCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := g.answers.Submit(opCtx, g.key, g.role, snapshot, text)
		g.report(ctx, opResult{kind: opSubmit, err: err})
	}()
}

func (g *game) report(ctx context.Context, res opResult) {
	select {
	case g.results <- res:
	case <-ctx.Done():
	}
}

func (g *game) finish(ctx context.Context, res opResult) {
	switch res.kind {
	case opRoll:
		g.rolling = false

		if res.err == nil {
			logf(g.cfg, "ROOMS: Rolled %d (%s) in %s", res.round.Roll, res.round.Prompt.Category, g.key)
			return
		}
		if ctx.Err() != nil {
			return
		}

		fmt.Fprintf(g.out, "Roll failed: %v\nType /retry to roll again.\n", res.err)
		g.retry = g.roll
	case opSubmit:
		switch {
		case res.err == nil:
			g.dropDraft()
		case errors.Is(res.err, session.ErrMissingPrecondition):
			fmt.Fprintf(g.out, "Cannot submit: %v\n", res.err)
		case ctx.Err() != nil:
		case g.draft == "":
			fmt.Fprintf(g.out, "Could not save your answer: %v\n", res.err)
		default:
			fmt.Fprintf(g.out, "Could not save your answer: %v\nType /retry to send it again.\n", res.err)
			g.retry = g.resubmit
		}
	}
}

func (g *game) resubmit(ctx context.Context) {
	if g.draft == "" {
		fmt.Fprintln(g.out, "Nothing to retry.")
		return
	}

	if roundOf(g.view.Latest(), g.role) != g.draftRound {
		g.dropDraft()
		fmt.Fprintln(g.out, "A new round started; your earlier answer was not sent.")
		return
	}

	g.answer(ctx, g.draft)
}

// render prints doc if anything the local partner can see has changed.
func (g *game) render(doc *session.Document) {
	if g.draft != "" && doc != nil && roundOf(doc, g.role) != g.draftRound {
		g.dropDraft()
	}

	text := describe(doc, g.role)
	if text == g.shown {
		return
	}
	g.shown = text

	fmt.Fprintln(g.out, text)
}

// describe is what role sees of doc.
func describe(doc *session.Document, role session.Role) string {
	switch session.DerivePhase(doc, role) {
	case session.NoRoundYet:
		return "Nobody has rolled yet. Type /roll to start."
	case session.Answering:
		return fmt.Sprintf("Rolled %d: %s\nYour question: %s\nType your answer and press enter.",
			doc.DiceRoll, doc.Category, doc.QuestionFor(role))
	case session.WaitingForPartner:
		return fmt.Sprintf("Your answer: %s\nWaiting for your partner...", doc.AnswerOf(role))
	case session.Revealed:
		return fmt.Sprintf("Revealed! (%s)\nYou answered: %s\nYour partner answered: %s\nType /roll for the next round.",
			doc.Category, doc.AnswerOf(role), doc.PartnerAnswer(role))
	default:
		return "Loading..."
	}
}

func printQR(out io.Writer, link string) error {
	code, err := qrcode.New(link, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("render qr code: %w", err)
	}

	_, err = fmt.Fprint(out, code.ToSmallString(false))
	return err
}

// printNewRoom prints a fresh room code and where to find it.
func printNewRoom(cfg *Config, out io.Writer) error {
	key, err := session.NewRoomKey()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, key)
	fmt.Fprintln(out, cfg.roomURL(key))

	if cfg.qr {
		return printQR(out, cfg.roomURL(key))
	}

	return nil
}
