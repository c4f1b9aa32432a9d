package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"

	"github.com/cognicore/mulda/pkg/mulda/corpus"
)

func main() {
	var (
		to      = flag.String("to", "mulda", "Target layout: mulda or conll")
		inPath  = flag.String("in", "", "Input file (default stdin)")
		outPath = flag.String("out", "", "Output file (default stdout)")
		check   = flag.Bool("check", false, "Parse the CoNLL input and report its size instead of converting")
	)
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inPath != "" {
		f, err := os.Open(*inPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		in = bufio.NewReader(f)
	}

	if *check {
		sentences, err := corpus.Read(in)
		if err != nil {
			log.Fatal("Invalid corpus: ", err)
		}
		entities := 0
		for _, s := range sentences {
			entities += s.NumEntities()
		}
		log.Printf("%d sentences, %d entities", len(sentences), entities)
		return
	}

	var out io.Writer = os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Fatal(err)
			}
		}()
		out = f
	}

	var err error
	switch *to {
	case "mulda":
		err = corpus.ToMulDA(in, out)
	case "conll":
		err = corpus.FromMulDA(in, out)
	default:
		log.Fatalf("--to must be mulda or conll, got %q", *to)
	}
	if err != nil {
		log.Fatal("Conversion failed: ", err)
	}
}
