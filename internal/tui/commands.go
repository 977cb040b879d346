package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/docsuite/server/internal/collab"
)

// local actions handled by the client itself
const (
	localQuit     = "quit"
	localSessions = "sessions"
	localHelp     = "help"
)

var errEmptyInput = errors.New("empty input")

const helpText = "/lock  /unlock  /edit <text>  /cursor <page> <x> <y>  /comment <page> <x> <y> <text>  /reply <id> <text>  /resolve <id>  /sessions  /quit, anything else is chat"

// turns an input line into a server command or a local action
// lines without a leading slash are chat messages
func parseInput(line string) (inputCommand, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return inputCommand{}, errEmptyInput
	}

	if !strings.HasPrefix(line, "/") {
		return inputCommand{
			Type:    collab.TypeChatMessage,
			Payload: collab.ChatMessagePayload{Message: line},
		}, nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "quit", "q":
		return inputCommand{Local: localQuit}, nil

	case "sessions":
		return inputCommand{Local: localSessions}, nil

	case "help":
		return inputCommand{Local: localHelp}, nil

	case "lock":
		return inputCommand{Type: collab.TypeLockAcquire}, nil

	case "unlock":
		return inputCommand{Type: collab.TypeLockRelease}, nil

	case "ping":
		return inputCommand{Type: collab.TypePing}, nil

	// replaces the whole document body, the server accepts it from the lock holder only
	case "edit":
		return inputCommand{
			Type:    collab.TypeContentUpdate,
			Payload: collab.ContentUpdatePayload{Content: rest},
		}, nil

	case "cursor":
		pos, _, err := parsePosition(rest, false)
		if err != nil {
			return inputCommand{}, err
		}

		return inputCommand{
			Type:    collab.TypeCursorUpdate,
			Payload: collab.CursorUpdatePayload{X: pos.X, Y: pos.Y, Page: pos.Page},
		}, nil

	case "comment":
		pos, text, err := parsePosition(rest, true)
		if err != nil {
			return inputCommand{}, err
		}

		return inputCommand{
			Type:    collab.TypeCommentAdd,
			Payload: collab.CommentAddPayload{Content: text, Position: &pos},
		}, nil

	case "reply":
		idText, text, _ := strings.Cut(rest, " ")

		id, err := parseCommentID(idText)
		if err != nil {
			return inputCommand{}, err
		}

		text = strings.TrimSpace(text)
		if text == "" {
			return inputCommand{}, errors.New("usage: /reply <id> <text>")
		}

		return inputCommand{
			Type:    collab.TypeCommentReply,
			Payload: collab.CommentReplyPayload{CommentID: id, Content: text},
		}, nil

	case "resolve":
		id, err := parseCommentID(rest)
		if err != nil {
			return inputCommand{}, err
		}

		return inputCommand{
			Type:    collab.TypeCommentResolve,
			Payload: collab.CommentResolvePayload{CommentID: id},
		}, nil

	default:
		return inputCommand{}, fmt.Errorf("unknown command: /%s", name)
	}
}

// parses "<page> <x> <y>" and, when withText is set, the trailing text
func parsePosition(args string, withText bool) (collab.Position, string, error) {
	fields := strings.Fields(args)

	usage := errors.New("usage: /cursor <page> <x> <y>")
	if withText {
		usage = errors.New("usage: /comment <page> <x> <y> <text>")
	}

	if len(fields) < 3 || (withText && len(fields) < 4) {
		return collab.Position{}, "", usage
	}

	page, err := strconv.Atoi(fields[0])
	if err != nil {
		return collab.Position{}, "", usage
	}

	x, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return collab.Position{}, "", usage
	}

	y, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return collab.Position{}, "", usage
	}

	text := ""
	if withText {
		text = strings.Join(fields[3:], " ")
	}

	return collab.Position{X: x, Y: y, Page: page}, text, nil
}

func parseCommentID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid comment id: %q", s)
	}

	return id, nil
}
