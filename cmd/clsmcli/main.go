// Command clsmcli is a line-oriented REPL over an embedded clsm store:
// put, get, del, range and stats against *clsm.LSM[int64,int64].
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/abcdlsj/clsm"
	"github.com/abcdlsj/clsm/config"
)

func main() {
	dir := flag.String("dir", "clsmdata", "directory disk run files are created under")
	eltsPerRun := flag.Int("elts-per-run", 1024, "entries per memory run")
	numRuns := flag.Int("num-runs", 4, "memory runs before a flush")
	diskRunsPerLevel := flag.Int("disk-runs-per-level", 4, "disk runs per tier before a cascade")
	flag.Parse()

	store, err := clsm.New[int64, int64](math.MinInt64,
		config.WithDir(*dir),
		config.WithEltsPerRun(*eltsPerRun),
		config.WithNumRuns(*numRuns),
		config.WithDiskRunsPerLevel(*diskRunsPerLevel),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clsmcli: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	repl(store)
}

func repl(store *clsm.LSM[int64, int64]) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "put":
			runPut(store, fields)
		case "get":
			runGet(store, fields)
		case "del":
			runDel(store, fields)
		case "range":
			runRange(store, fields)
		case "stats":
			fmt.Print(store.DumpStats())
		case "dump":
			fmt.Print(store.DumpElements())
		case "quit", "exit":
			return
		default:
			fmt.Fprintf(os.Stderr, "clsmcli: unknown command %q\n", fields[0])
		}
	}
}

func runPut(store *clsm.LSM[int64, int64], fields []string) {
	if len(fields) != 3 {
		fmt.Fprintln(os.Stderr, "clsmcli: usage: put <key> <value>")
		return
	}
	key, err1 := strconv.ParseInt(fields[1], 10, 64)
	value, err2 := strconv.ParseInt(fields[2], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(os.Stderr, "clsmcli: key and value must be integers")
		return
	}
	store.Insert(key, value)
}

func runGet(store *clsm.LSM[int64, int64], fields []string) {
	if len(fields) != 2 {
		fmt.Fprintln(os.Stderr, "clsmcli: usage: get <key>")
		return
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clsmcli: key must be an integer")
		return
	}
	if v, ok := store.Search(key); ok {
		fmt.Println(v)
	} else {
		fmt.Println("not found")
	}
}

func runDel(store *clsm.LSM[int64, int64], fields []string) {
	if len(fields) != 2 {
		fmt.Fprintln(os.Stderr, "clsmcli: usage: del <key>")
		return
	}
	key, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clsmcli: key must be an integer")
		return
	}
	store.Delete(key)
}

func runRange(store *clsm.LSM[int64, int64], fields []string) {
	if len(fields) != 3 {
		fmt.Fprintln(os.Stderr, "clsmcli: usage: range <key1> <key2>")
		return
	}
	k1, err1 := strconv.ParseInt(fields[1], 10, 64)
	k2, err2 := strconv.ParseInt(fields[2], 10, 64)
	if err1 != nil || err2 != nil {
		fmt.Fprintln(os.Stderr, "clsmcli: key1 and key2 must be integers")
		return
	}
	for _, rec := range store.Range(k1, k2) {
		fmt.Printf("%d %d\n", rec.Key, rec.Value)
	}
}
