package trends

import (
	"context"
	"sync"
)

// Metrics is the profitability summary of one bucket. Money is in minor units.
type Metrics struct {
	Revenue    int64
	LabourCost int64
	Profit     int64
	Jobs       int
}

// Point pairs a bucket with its metrics. Failed marks a bucket whose fetch
// errored and whose metrics were zeroed.
type Point struct {
	Bucket  Bucket
	Metrics Metrics
	Failed  bool
	Err     error
}

// FetchFunc loads the metrics of one bucket.
type FetchFunc func(ctx context.Context, bucket Bucket) (Metrics, error)

// Collect fetches every bucket concurrently and returns points in bucket
// order. A failing bucket never aborts the series.
func Collect(ctx context.Context, buckets []Bucket, fetch FetchFunc) []Point {
	points := make([]Point, len(buckets))
	var wg sync.WaitGroup
	for i, bucket := range buckets {
		wg.Add(1)
		go func(i int, bucket Bucket) {
			defer wg.Done()
			points[i] = Point{Bucket: bucket}
			metrics, err := fetch(ctx, bucket)
			if err != nil {
				points[i].Failed = true
				points[i].Err = err
				return
			}
			points[i].Metrics = metrics
		}(i, bucket)
	}
	wg.Wait()
	return points
}

// Totals sums the metrics of every point that did not fail.
func Totals(points []Point) Metrics {
	var total Metrics
	for _, p := range points {
		if p.Failed {
			continue
		}
		total.Revenue += p.Metrics.Revenue
		total.LabourCost += p.Metrics.LabourCost
		total.Profit += p.Metrics.Profit
		total.Jobs += p.Metrics.Jobs
	}
	return total
}
