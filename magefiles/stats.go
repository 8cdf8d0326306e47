//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// Stats prints Go lines of code per package and documentation word counts
// as one JSON record.
func Stats() error {
	prod := map[string]int{}
	test := map[string]int{}

	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			name := info.Name()
			if path == "vendor" || path == ".git" || path == binaryDir || path == "magefiles" ||
				(path != "." && strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, countErr := countLines(path)
		if countErr != nil {
			return nil
		}
		pkg := filepath.ToSlash(filepath.Dir(path))
		if strings.HasSuffix(path, "_test.go") {
			test[pkg] += count
		} else {
			prod[pkg] += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	docWords := 0
	for _, path := range []string{"README.md", "SPEC_FULL.md", "DESIGN.md"} {
		if words, err := countWordsInFile(path); err == nil {
			docWords += words
		}
	}

	type pkgStats struct {
		Package string `json:"package"`
		Prod    int    `json:"go_loc_prod"`
		Test    int    `json:"go_loc_test"`
	}
	pkgs := make([]string, 0, len(prod))
	for p := range prod {
		pkgs = append(pkgs, p)
	}
	for p := range test {
		if _, ok := prod[p]; !ok {
			pkgs = append(pkgs, p)
		}
	}
	sort.Strings(pkgs)

	record := struct {
		Prod     int        `json:"go_loc_prod"`
		Test     int        `json:"go_loc_test"`
		Total    int        `json:"go_loc"`
		DocWords int        `json:"doc_wc"`
		Packages []pkgStats `json:"packages"`
	}{DocWords: docWords}
	for _, p := range pkgs {
		record.Prod += prod[p]
		record.Test += test[p]
		record.Packages = append(record.Packages, pkgStats{Package: p, Prod: prod[p], Test: test[p]})
	}
	record.Total = record.Prod + record.Test

	line, err := json.Marshal(record)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

func countWordsInFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	count := 0
	inWord := false
	for _, r := range string(data) {
		if unicode.IsSpace(r) {
			inWord = false
		} else if !inWord {
			inWord = true
			count++
		}
	}
	return count, nil
}
