// Command bsondump reads a file of concatenated BSON documents and prints
// each one, one per line. It's a thin driver over DeserializeStream meant
// for poking at a dump file from the shell — not a JSON converter.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wirebson/bsoncodec"
)

func main() {
	var (
		path   string
		legacy bool
	)

	rootCmd := &cobra.Command{
		Use:           "bsondump <file>",
		Short:         "Print the documents in a BSON dump file",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0], path, legacy)
		},
	}
	rootCmd.Flags().StringVar(&path, "path", "", "print only the dotted field at this path from each document")
	rootCmd.Flags().BoolVar(&legacy, "legacy-binary-subtype-2", false, "recognise the legacy double-length Binary subtype 2 encoding")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(file, path string, legacy bool) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}

	codec := bson.NewDefaultCodec()
	opts := bson.DecodeOptions{LegacyBinarySubtype2: legacy}
	docs, _, err := codec.DeserializeStream(data, 0, 0, nil, opts)
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}

	for _, doc := range docs {
		if path == "" {
			fmt.Println(doc.String())
			continue
		}
		val, ok := reachInto(doc, splitPath(path))
		if !ok {
			fmt.Println("<missing>")
			continue
		}
		fmt.Println(val)
	}
	return nil
}

// reachInto walks dot into a decoded document without the coercion rules
// of Document.Reach/Map.Reach — those exist for typed Go destinations, not
// for printing whatever's found.
func reachInto(cur interface{}, dot []string) (string, bool) {
	for _, name := range dot {
		switch curt := cur.(type) {
		case bson.Document:
			v, ok := curt.Get(name)
			if !ok {
				return "", false
			}
			cur = v
		case bson.Map:
			v, ok := curt[name]
			if !ok {
				return "", false
			}
			cur = v
		default:
			return "", false
		}
	}
	return fmt.Sprint(cur), true
}

func splitPath(path string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			parts = append(parts, path[start:i])
			start = i + 1
		}
	}
	return append(parts, path[start:])
}
