// Command bptreedb runs the line-oriented instruction protocol of
// original_source/BPlusTree/main.cpp against a persistent B+ tree: an
// instruction count, then that many lines of "insert <key> <value>",
// "delete <key> <value>", or "find <key>".
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"bptreedb/bptree"
)

type tree = bptree.BPlusTree[string, int64]

func main() {
	path := flag.String("data", "output/a", "path prefix for the data and sidecar files")
	blockSize := flag.Int("block-size", 4095, "max occupied slots per non-root page")
	keyWidth := flag.Int("key-width", 68, "fixed byte width of each key")
	cacheSize := flag.Int("cache-size", 0, "page cache capacity (0 picks a size from -height)")
	height := flag.Int("height", 8, "expected tree height, used to size the cache when -cache-size is 0")
	flag.Parse()

	if err := os.MkdirAll(dirOf(*path), 0777); err != nil {
		log.Fatalf("bptreedb: %v", err)
	}

	if err := run(*path, *blockSize, *keyWidth, effectiveCacheSize(*cacheSize, *height)); err != nil {
		log.Fatalf("bptreedb: %v", err)
	}
}

func run(path string, blockSize, keyWidth, cacheSize int) error {
	tuning, err := bptree.NewTuning(blockSize)
	if err != nil {
		return err
	}

	t, err := bptree.Open[string, int64](
		path, tuning,
		newFixedStringCodec(keyWidth), bptree.Int64Codec(),
		fixedStringComparator(), bptree.Ordered[int64](),
		cacheSize,
	)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := t.Close(); cerr != nil {
			log.Printf("bptreedb: closing store: %v", cerr)
		}
	}()

	in := newTokenReader(bufio.NewReaderSize(os.Stdin, 1<<20))
	out := bufio.NewWriterSize(os.Stdout, 1<<20)
	defer out.Flush()

	n := in.int()
	for i := 0; i < n; i++ {
		if err := runInstruction(t, in, out); err != nil {
			return err
		}
	}
	return nil
}

func runInstruction(t *tree, in *tokenReader, out *bufio.Writer) error {
	switch op := in.token(); op {
	case "insert":
		key := in.token()
		val := in.int()
		return t.Insert(key, int64(val))
	case "delete":
		key := in.token()
		val := in.int()
		return t.Erase(key, int64(val))
	case "find":
		key := in.token()
		values, err := t.Find(key)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			fmt.Fprintln(out, "null")
			return nil
		}
		for i, v := range values {
			if i > 0 {
				fmt.Fprint(out, " ")
			}
			fmt.Fprint(out, v)
		}
		fmt.Fprintln(out)
		return nil
	default:
		return fmt.Errorf("bptreedb: unrecognized instruction %q", op)
	}
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func effectiveCacheSize(cacheSize, height int) int {
	if cacheSize > 0 {
		return cacheSize
	}
	return bptree.RecommendedCacheSize(height)
}
