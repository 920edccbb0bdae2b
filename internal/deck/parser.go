// Package deck reads question decks written in markdown.
//
// A card is a block of prefixed lines:
//
//	Q: prompt
//	A: answer
//	D: optional description
//	T: optional, comma, separated, tags
//
// Q, A and D may continue over following lines. Cards are separated by a
// line containing only "---" or by the next "Q:".
package deck

import (
	"bufio"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashsync/internal/domain"
)

const (
	questionPrefix    = "Q:"
	answerPrefix      = "A:"
	descriptionPrefix = "D:"
	tagsPrefix        = "T:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingDescription
)

// Card is one parsed deck entry.
type Card struct {
	Prompt      string
	Answer      string
	Description string
	Tags        []string
}

// NewQuestion converts the card into a create request.
func (c Card) NewQuestion() domain.NewQuestion {
	nq := domain.NewQuestion{Prompt: c.Prompt, Answer: c.Answer, Tags: c.Tags}
	if c.Description != "" {
		d := c.Description
		nq.Description = &d
	}
	return nq
}

// ParseFile reads a file from the given path and extracts all cards.
func ParseFile(path string) ([]Card, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all cards. Cards without a
// prompt are dropped.
func Parse(r io.Reader) ([]Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []Card
	var current Card
	var block []string
	st := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch st {
		case readingQuestion:
			current.Prompt = content
		case readingAnswer:
			current.Answer = content
		case readingDescription:
			current.Description = content
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Prompt != "" {
			cards = append(cards, current)
		}
		current = Card{}
		st = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishCard()
			continue
		}

		switch {
		case strings.HasPrefix(line, questionPrefix):
			// A new question always starts a new card.
			finishCard()
			st = readingQuestion
			block = append(block, stripPrefix(line, questionPrefix))
		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			st = readingAnswer
			block = append(block, stripPrefix(line, answerPrefix))
		case strings.HasPrefix(line, descriptionPrefix):
			flushBlock()
			st = readingDescription
			block = append(block, stripPrefix(line, descriptionPrefix))
		case strings.HasPrefix(line, tagsPrefix):
			flushBlock()
			current.Tags = domain.ParseTags(stripPrefix(line, tagsPrefix))
			// Lines after a tag line belong to no field.
			st = seeking
		default:
			if st != seeking {
				block = append(block, line)
			}
		}
	}

	finishCard() // Finish the very last card in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func stripPrefix(line, prefix string) string {
	content := line[len(prefix):]
	if strings.HasPrefix(content, " ") {
		content = content[1:]
	}
	return content
}

// ParseDir parses every .md file under dir. Files that fail to parse are
// reported in errs and skipped.
func ParseDir(dir string) (cards []Card, errs []error, err error) {
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := ParseFile(path)
		if parseErr != nil {
			errs = append(errs, &ParseError{Path: path, Err: parseErr})
			return nil
		}
		cards = append(cards, fileCards...)
		return nil
	})
	return cards, errs, err
}

// ParseError reports a deck file that could not be read.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return "parsing " + e.Path + ": " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }
