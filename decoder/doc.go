// Package decoder turns one directory entry and its sub-block data into a
// decoded, shaped pixel tile.
//
// Dispatch goes through a Registry built once per session and shared by all
// workers. The registry maps compression codes to decode functions and knows
// which pixel types have a layout:
//
//	reg := decoder.NewRegistry(decoder.WithJPEGXR(myWaveletDecoder))
//	tile, err := reg.Decode(&entry, subBlock.Data, decoder.Extent{})
//	if err != nil {
//	    return err
//	}
//	defer tile.Release()
//
// Uncompressed data is reinterpreted in place: the tile aliases the sub-block
// payload and only copies when the host byte order differs from the file's.
package decoder
