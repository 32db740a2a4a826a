// Copyright (c) 2023 The KBase Project and its Contributors
// Copyright (c) 2023 Cohere Consulting, LLC
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package stages

import (
	"context"
	"sync"

	"github.com/deliveryhero/pipeline/v2"
)

// an accession and the data fetched for it
type fetched[T any] struct {
	Index     int
	Accession string
	Data      T
}

// Fetches the data for each of the given accessions, returning it in the order
// of the accessions. With a concurrency greater than 1, up to that many
// fetches run at once. If any fetch fails, the error for the earliest
// accession in the list is returned.
func prefetch[T any](ctx context.Context, concurrency int, accessions []string,
	fetch func(context.Context, string) (T, error)) ([]T, error) {
	data := make([]T, len(accessions))
	if concurrency <= 1 || len(accessions) <= 1 {
		for i, accession := range accessions {
			d, err := fetch(ctx, accession)
			if err != nil {
				return nil, err
			}
			data[i] = d
		}
		return data, nil
	}

	var mu sync.Mutex
	errs := make(map[int]error)
	process := func(ctx context.Context, item fetched[T]) (fetched[T], error) {
		d, err := fetch(ctx, item.Accession)
		item.Data = d
		return item, err
	}
	cancel := func(item fetched[T], err error) {
		mu.Lock()
		errs[item.Index] = err
		mu.Unlock()
	}

	items := make([]fetched[T], len(accessions))
	for i, accession := range accessions {
		items[i] = fetched[T]{Index: i, Accession: accession}
	}
	output := pipeline.ProcessConcurrently(ctx, concurrency,
		pipeline.NewProcessor(process, cancel), pipeline.Emit(items...))
	for item := range output {
		data[item.Index] = item.Data
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range accessions {
		if err, found := errs[i]; found {
			return nil, err
		}
	}
	return data, nil
}
