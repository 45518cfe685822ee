// Package fs is the filesystem layer under blobstore.LocalStore, the default
// home of disk frame pages.
//
//   - [FileSystem] and [File] cover the calls a page store makes.
//   - [WriteAtomic] replaces a page through a synced temporary file and a
//     rename, so a crash mid-write leaves the previous page readable.
//     [IsTemp] lets listings skip such leftovers.
//   - [LocalFS] delegates to package os; [Default] is the instance used when
//     no filesystem is configured.
//   - [FaultyFS] wraps another FileSystem and injects failures for pages whose
//     name matches a rule, so tests can observe how frames surface read and
//     write errors.
//
// Calls carry no context.Context: local syscalls cannot be interrupted.
package fs
