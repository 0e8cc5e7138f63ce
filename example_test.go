package rxgo_test

import (
	"context"
	"fmt"
	"time"

	rxgo "github.com/xinjiayu/rxgo/v2"
)

func ExampleObservable_Pipe() {
	rxgo.Just(1, 2, 3, 4, 5).Pipe(
		rxgo.Filter(func(v interface{}) bool { return v.(int)%2 == 1 }),
		rxgo.Map(func(v interface{}) (interface{}, error) { return v.(int) * v.(int), nil }),
	).SubscribeWithCallbacks(func(v interface{}) {
		fmt.Println(v)
	}, nil, func() {
		fmt.Println("done")
	})
	// Output:
	// 1
	// 9
	// 25
	// done
}

func ExampleBehaviorSubject() {
	subject := rxgo.NewBehaviorSubject("a")
	subject.Next("b")

	subject.SubscribeWithCallbacks(func(v interface{}) {
		fmt.Println("received", v)
	}, nil, nil)
	subject.Next("c")
	// Output:
	// received b
	// received c
}

func ExampleVirtualTimeScheduler() {
	scheduler := rxgo.NewVirtualTimeScheduler(0)
	rxgo.Interval(time.Second, rxgo.WithScheduler(scheduler)).
		Pipe(rxgo.Take(3)).
		SubscribeWithCallbacks(func(v interface{}) {
			fmt.Printf("%v: %v\n", scheduler.Frame(), v)
		}, nil, nil)

	_ = scheduler.Flush()
	// Output:
	// 1s: 0
	// 2s: 1
	// 3s: 2
}

func ExampleConnectableObservable_RefCount() {
	source := rxgo.Create(func(s *rxgo.Subscriber) rxgo.Teardown {
		fmt.Println("subscribed")
		return func() { fmt.Println("released") }
	})
	shared := rxgo.Publish(source).RefCount()

	a := shared.Subscribe(nil)
	b := shared.Subscribe(nil)
	_ = a.Unsubscribe()
	_ = b.Unsubscribe()
	// Output:
	// subscribed
	// released
}

func ExampleFirstValueFrom() {
	v, err := rxgo.FirstValueFrom(context.Background(), rxgo.Just("first", "second"))
	fmt.Println(v, err)
	// Output: first <nil>
}

func ExampleIterator_All() {
	it := rxgo.ToIterator(rxgo.Just(1, 2, 3))
	for v, err := range it.All(context.Background()) {
		if err != nil {
			break
		}
		fmt.Println(v)
	}
	// Output:
	// 1
	// 2
	// 3
}
