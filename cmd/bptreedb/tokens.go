package main

import (
	"bufio"
	"io"
	"log"
	"strconv"
)

// tokenReader pulls whitespace-separated tokens off r, in the spirit of
// btree/util.go's readInstruction/parseInt but generalized to the
// driver's three differently-shaped instruction lines.
type tokenReader struct {
	sc *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)
	return &tokenReader{sc: sc}
}

func (t *tokenReader) token() string {
	if !t.sc.Scan() {
		if err := t.sc.Err(); err != nil {
			log.Fatalf("bptreedb: reading input: %v", err)
		}
		log.Fatal("bptreedb: unexpected end of input")
	}
	return t.sc.Text()
}

func (t *tokenReader) int() int {
	v, err := strconv.Atoi(t.token())
	if err != nil {
		log.Fatalf("bptreedb: parsing integer %q: %v", t.sc.Text(), err)
	}
	return v
}
