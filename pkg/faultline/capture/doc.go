// Package capture replaces network delivery with an in-memory store of notices so tests
// can assert on what would have been sent.
//
// The harness hands out a faultline.Transport that intercepts ingestion calls while the
// harness is active and passes everything else to the real transport:
//
//	store := faultline.NewStore()
//	h := capture.New(store)
//	require.NoError(t, h.Setup())
//	defer h.Teardown()
//
//	notifier := faultline.NewNotifier(store,
//	    faultline.WithSink(intake.NewSink(store, intake.WithTransport(h.Transport()))))
//	notifier.Notify(ctx, err)
//
//	capture.RequireNoticeCount(t, h, 1)
package capture
