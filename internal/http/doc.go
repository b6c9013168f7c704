// Package http provides HTTP handlers and middleware for the inventory API.
//
// The router exposes the following endpoints:
//   - GET /rooms, POST /rooms, GET /rooms/{id}, PUT /rooms/{id},
//     DELETE /rooms/{id}: room inventory endpoints exchanging the `roomDTO`
//     payload defined in room_handler.go. Rooms carry their equipment inline;
//     PUT has full-replace semantics over the room and its equipment list.
//   - GET /scan?barcode=B: resolves a decoded barcode string to
//     {"type":"room"|"equipment","data":...} or 404 when the barcode is
//     unassigned.
//   - POST /scan/image: accepts an encoded image body (PNG/JPEG/GIF), decodes
//     a barcode from it through an upload-mode scan session, and resolves the
//     result like GET /scan. Unreadable barcodes return 422 with the failure
//     classification in `error_code`.
//   - POST /admin/init-db: applies the storage schema migrations.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
