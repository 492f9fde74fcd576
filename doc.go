/*
Package eventsys is an in-process event dispatch library.
Register listeners against event types, then post events to them synchronously in priority order, or asynchronously on a worker pool.

The dispatcher itself lives in the event package. The other packages are small supporting pieces that it and the eventsys command are built on.
*/
package eventsys
