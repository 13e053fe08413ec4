package IO

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manningwu07/shigen/bucket"
)

// ReadData reads a paired token-ID corpus into a bucketed dataset. Each
// file holds one sentence per line, IDs space-separated; line i of srcPath
// pairs with line i of tgtPath. EOS is appended to every target, each pair
// lands in the smallest bucket with room for both sides, and pairs fitting
// no bucket are dropped. maxSize > 0 caps how many pairs are read.
func ReadData(srcPath, tgtPath string, buckets []bucket.Bucket, maxSize int) (*bucket.Dataset, error) {
	srcF, err := os.Open(srcPath)
	if err != nil {
		return nil, fmt.Errorf("open source ids: %w", err)
	}
	defer srcF.Close()
	tgtF, err := os.Open(tgtPath)
	if err != nil {
		return nil, fmt.Errorf("open target ids: %w", err)
	}
	defer tgtF.Close()

	d := bucket.NewDataset(buckets)
	srcSc := bufio.NewScanner(srcF)
	tgtSc := bufio.NewScanner(tgtF)
	n := 0
	for srcSc.Scan() && tgtSc.Scan() {
		n++
		if n%100000 == 0 {
			fmt.Printf("  reading data line %d\n", n)
		}
		src, err := parseIDs(srcSc.Text())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", srcPath, n, err)
		}
		tgt, err := parseIDs(tgtSc.Text())
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", tgtPath, n, err)
		}
		tgt = append(tgt, EosID)
		d.Add(bucket.Example{Source: src, Target: tgt})
		if maxSize > 0 && n >= maxSize {
			break
		}
	}
	if err := srcSc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", srcPath, err)
	}
	if err := tgtSc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", tgtPath, err)
	}
	return d, nil
}

func parseIDs(line string) ([]int, error) {
	fields := strings.Fields(line)
	ids := make([]int, len(fields))
	for i, f := range fields {
		id, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad token id %q", f)
		}
		ids[i] = id
	}
	return ids, nil
}
