// Package catalog loads the immutable task catalog.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

// Load reads the task catalog from a JSON seed file. When the file does
// not exist the built-in catalog is returned instead.
func Load(path string) ([]domain.Task, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read task seed file: %w", err)
	}

	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode task seed file: %w", err)
	}

	for i := range tasks {
		if tasks[i].ID == "" {
			return nil, fmt.Errorf("task seed entry %d has no id", i)
		}
	}
	return tasks, nil
}

// Default returns the built-in task catalog used when no seed file exists.
func Default() []domain.Task {
	return []domain.Task{
		{
			ID:          "go-fizzbuzz",
			Title:       "FizzBuzz",
			Language:    "go",
			Difficulty:  "easy",
			Description: "Print numbers 1 to 100. For multiples of 3 print Fizz, for multiples of 5 print Buzz, and for multiples of both print FizzBuzz.",
			StarterCode: "package main\n\nfunc main() {\n\t// your code here\n}\n",
		},
		{
			ID:          "go-reverse-string",
			Title:       "Reverse a String",
			Language:    "go",
			Difficulty:  "easy",
			Description: "Write a function that reverses a string without using the standard library, handling multi-byte runes correctly.",
			StarterCode: "package main\n\nfunc reverse(s string) string {\n\t// your code here\n\treturn s\n}\n",
		},
		{
			ID:          "py-word-count",
			Title:       "Word Frequency",
			Language:    "python",
			Difficulty:  "medium",
			Description: "Given a block of text, return the ten most frequent words and their counts, ignoring case and punctuation.",
			StarterCode: "def word_count(text):\n    # your code here\n    pass\n",
		},
		{
			ID:          "js-debounce",
			Title:       "Implement Debounce",
			Language:    "javascript",
			Difficulty:  "medium",
			Description: "Implement a debounce(fn, wait) helper that delays invoking fn until wait milliseconds have passed since the last call.",
			StarterCode: "function debounce(fn, wait) {\n  // your code here\n}\n",
		},
		{
			ID:          "go-lru-cache",
			Title:       "LRU Cache",
			Language:    "go",
			Difficulty:  "hard",
			Description: "Implement an LRU cache with Get and Put in O(1) using a map and a doubly linked list.",
			StarterCode: "package main\n\ntype LRUCache struct {\n\t// your fields here\n}\n\nfunc NewLRUCache(capacity int) *LRUCache {\n\t// your code here\n\treturn nil\n}\n",
		},
	}
}
