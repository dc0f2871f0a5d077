// Package docs embeds the retire user manual, one markdown file per topic.
package docs

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strings"
)

//go:embed *.md
var docs embed.FS

// index is the topic listing all the others.
const index = "readme"

// Topic is an entry of the documentation index.
type Topic struct {
	Name    string
	Summary string
}

// Index returns the topics listed in the readme, in order.
//
// Topics are listed as "* <name>: <summary>" lines.
func Index() ([]Topic, error) {
	content, err := docs.ReadFile(index + ".md")
	if err != nil {
		return nil, err
	}
	var topics []Topic
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "* ")
		if !ok {
			continue
		}
		name, summary, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		topics = append(topics, Topic{Name: strings.TrimSpace(name), Summary: strings.TrimSpace(summary)})
	}
	return topics, scanner.Err()
}

// GetTopic returns the content of a documentation topic, "*" for all of them.
func GetTopic(topic string) (string, error) {
	if topic == "*" {
		topics, err := GetAllTopics()
		if err != nil {
			return "", err
		}
		return GetTopics(topics...)
	}

	content, err := docs.ReadFile(topic + ".md")
	if err != nil {
		return "", fmt.Errorf("topic %q not found, see 'retire topic -list': %w", topic, err)
	}
	return string(content), nil
}

// GetTopics returns the content of multiple documentation topics concatenated together.
func GetTopics(topics ...string) (string, error) {
	var b bytes.Buffer
	for _, topic := range topics {
		content, err := GetTopic(topic)
		if err != nil {
			return "", err
		}
		b.WriteString(content)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// GetAllTopics returns the sorted names of all the topics, the index excluded.
func GetAllTopics() ([]string, error) {
	files, err := fs.Glob(docs, "*.md")
	if err != nil {
		return nil, err
	}
	var topics []string
	for _, file := range files {
		if name := strings.TrimSuffix(file, ".md"); name != index {
			topics = append(topics, name)
		}
	}
	slices.Sort(topics)
	return topics, nil
}
