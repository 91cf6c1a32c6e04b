package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/lernado/sage/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRingDeduper(t *testing.T) {
	Convey("Given a ring deduper", t, func() {
		ctx := context.Background()

		Convey("When recording a new event ID", func() {
			d := dedupe.NewRingDeduper()
			seen := d.SeenAndRecord(ctx, "event-1")

			Convey("Then it is newly recorded", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When recording the same ID twice", func() {
			d := dedupe.NewRingDeduper()
			first := d.SeenAndRecord(ctx, "event-1")
			second := d.SeenAndRecord(ctx, "event-1")

			Convey("Then only the second call reports it as seen", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When unrecording an ID", func() {
			d := dedupe.NewRingDeduper()
			d.SeenAndRecord(ctx, "event-1")
			d.Unrecord(ctx, "event-1")

			Convey("Then the ID can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "event-1"), ShouldBeFalse)
			})
		})

		Convey("When the ring fills up", func() {
			d := dedupe.NewRingDeduper(dedupe.WithMaxSize(3))
			for i := 0; i < 3; i++ {
				d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i))
			}
			d.SeenAndRecord(ctx, "event-3")

			Convey("Then the oldest ID is evicted and size stays bounded", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "event-0"), ShouldBeFalse) // evicted, rerecordable
				So(d.SeenAndRecord(ctx, "event-3"), ShouldBeTrue)  // still tracked
			})
		})

		Convey("When accessed concurrently", func() {
			d := dedupe.NewRingDeduper(dedupe.WithMaxSize(10000))
			var wg sync.WaitGroup
			var mu sync.Mutex
			recorded := 0

			for g := 0; g < 8; g++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						if !d.SeenAndRecord(ctx, fmt.Sprintf("event-%d", i)) {
							mu.Lock()
							recorded++
							mu.Unlock()
						}
					}
				}()
			}
			wg.Wait()

			Convey("Then each distinct ID is recorded exactly once", func() {
				So(recorded, ShouldEqual, 100)
				So(d.Size(), ShouldEqual, 100)
			})
		})
	})
}
