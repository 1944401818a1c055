package catalog

// Schema creates the catalog tables. It is portable across SQLite, MySQL and PostgreSQL.
const Schema = `
CREATE TABLE vendors (
	id INTEGER PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	country VARCHAR(64)
);
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	type VARCHAR(32) NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	sku VARCHAR(36),
	in_stock BOOLEAN NOT NULL DEFAULT FALSE,
	released_at TIMESTAMP,
	vendor_id INTEGER REFERENCES vendors(id)
);
CREATE TABLE tags (
	id INTEGER PRIMARY KEY,
	name VARCHAR(64) NOT NULL
);
CREATE TABLE product_tags (
	product_id INTEGER NOT NULL REFERENCES products(id),
	tag_id INTEGER NOT NULL REFERENCES tags(id),
	PRIMARY KEY (product_id, tag_id)
);
`

// SeedData inserts a small sample catalog.
const SeedData = `
INSERT INTO vendors (id, name, country) VALUES
	(1, 'Acme', 'US'),
	(2, 'Noctua', 'AT');
INSERT INTO products (id, name, type, price, sku, in_stock, released_at, vendor_id) VALUES
	(1, 'fanpoll', 'cooling', 79.5, '6ba7b810-9dad-11d1-80b4-00c04fd430c8', TRUE, '2023-05-01 09:30:00', 2),
	(2, 'fanpoll', 'cpu', 320, '6ba7b811-9dad-11d1-80b4-00c04fd430c8', TRUE, '2024-01-15 00:00:00', 1),
	(3, 'fanpoll', 'memory', 95, NULL, FALSE, NULL, 1),
	(4, 'fanpoll', 'gpu', 80, NULL, TRUE, NULL, NULL),
	(5, 'quietbox', 'memory', 150, NULL, TRUE, '2022-11-30 12:00:00', 1);
INSERT INTO tags (id, name) VALUES
	(1, 'silent'),
	(2, 'rgb'),
	(3, 'budget');
INSERT INTO product_tags (product_id, tag_id) VALUES
	(1, 1), (1, 2), (1, 3),
	(2, 2),
	(5, 1);
`
