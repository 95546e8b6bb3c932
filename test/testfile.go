package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/cheggaaa/pb.v1"
)

// Sets up the parameters
var numLines = flag.Int("num_lines", 10000, "The number of corpus lines (documents) to be generated")
var numWordsPerLine = flag.Int("num_words", 20, "The number of words per line")
var typoRate = flag.Float64("typo_rate", 0.05, "The probability that a generated word carries a one-character typo")
var dictFile = flag.String("dict_file", "dictionary.txt", "The dictionary file used to generate the random words")
var outputPath = flag.String("output_path", "corpus.txt", "The file where the corpus should be stored")

// typo replaces one random character of `word` with a random lower-case
// letter.
func typo(word string, rng *rand.Rand) string {
	runes := []rune(word)
	runes[rng.Intn(len(runes))] = rune('a' + rng.Intn(26))
	return string(runes)
}

// This is a little tool for creating a test corpus of random English words, one
// document per line, for `fsse index`.  Use `go run testfile.go --help` to
// check the configurable parameters.
func main() {
	flag.Parse()

	// Creates the dictionary
	dict, err := os.Open(*dictFile)
	if err != nil {
		fmt.Println("Failed to open the dictionary file")
		os.Exit(-1)
	}
	scanner := bufio.NewScanner(dict)
	scanner.Split(bufio.ScanWords)
	var words []string
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	dict.Close()
	if len(words) == 0 {
		fmt.Println("The dictionary file has no words")
		os.Exit(-1)
	}

	outfile, err := os.Create(*outputPath)
	if err != nil {
		fmt.Println("Cannot create the corpus file:", err)
		os.Exit(-1)
	}
	defer outfile.Close()
	out := bufio.NewWriter(outfile)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	fmt.Println("Generating the test corpus...")
	bar := pb.StartNew(*numLines)
	line := make([]string, *numWordsPerLine)
	for i := 0; i < *numLines; i++ {
		for j := range line {
			line[j] = words[rng.Intn(len(words))]
			if rng.Float64() < *typoRate {
				line[j] = typo(line[j], rng)
			}
		}
		fmt.Fprintln(out, strings.Join(line, " "))
		bar.Increment()
	}
	if err := out.Flush(); err != nil {
		fmt.Println("Cannot write the corpus file:", err)
		os.Exit(-1)
	}
	bar.FinishPrint("Test corpus generated")
}
